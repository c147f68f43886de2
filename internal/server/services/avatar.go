package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/townsquare/internal/common"
	"github.com/dmitrijs2005/townsquare/internal/logging"
	"github.com/dmitrijs2005/townsquare/internal/server/config"
	"github.com/dmitrijs2005/townsquare/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// avatarUploadValidity bounds how long a presigned PUT stays usable.
const avatarUploadValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// AvatarUpload tells the client where to PUT the image and where it will be
// served from afterwards.
type AvatarUpload struct {
	UploadURL string `json:"upload_url"`
	AvatarURL string `json:"avatar_url"`
}

// AvatarService hands out presigned S3 uploads for profile pictures.
type AvatarService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
	log         logging.Logger

	mu      sync.Mutex
	presign *s3.PresignClient
}

func NewAvatarService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *AvatarService {
	return &AvatarService{db: db, repomanager: m, config: cfg, log: log}
}

// AvatarKey returns a fresh object key under the user's prefix.
func AvatarKey(userID string) string {
	return fmt.Sprintf("avatars/%s/%s", userID, uuid.New())
}

func (s *AvatarService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.presign != nil {
		return s.presign, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	s.presign = newS3PresignClient(client)
	return s.presign, nil
}

// publicURL is where key is served once uploaded.
func (s *AvatarService) publicURL(key string) string {
	if s.config.S3PublicBaseURL != "" {
		return strings.TrimRight(s.config.S3PublicBaseURL, "/") + "/" + key
	}
	return strings.TrimRight(s.config.S3BaseEndpoint, "/") + "/" + s.config.S3Bucket + "/" + key
}

// UploadURL presigns a PUT for a new avatar of userID and records the
// resulting public URL on the profile.
func (s *AvatarService) UploadURL(ctx context.Context, userID string) (*AvatarUpload, error) {
	pc, err := s.getPresignClient(ctx)
	if err != nil {
		s.log.Error(ctx, "s3 client setup failed", "error", err)
		return nil, common.ErrorInternal
	}

	bucket := s.config.S3Bucket
	key := AvatarKey(userID)

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(avatarUploadValidity))
	if err != nil {
		s.log.Error(ctx, "avatar presign failed", "user_id", userID, "error", err)
		return nil, common.ErrorInternal
	}

	upload := &AvatarUpload{UploadURL: req.URL, AvatarURL: s.publicURL(key)}

	if err := s.repomanager.Profiles(s.db).SetAvatarURL(ctx, userID, upload.AvatarURL); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.log.Error(ctx, "avatar url update failed", "user_id", userID, "error", err)
		return nil, common.ErrorInternal
	}

	return upload, nil
}
