package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/dmitrijs2005/townsquare/internal/client/client"
	"github.com/dmitrijs2005/townsquare/internal/common"
)

// Indirections over the interactive prompts, swapped in tests.
var (
	promptLine     = PromptLine
	promptPassword = PromptPassword
	readFile       = os.ReadFile
)

// Register prompts for the account fields and signs the new user in.
func (a *App) Register(ctx context.Context) error {
	var req client.SignupRequest
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Mobile number", &req.MobileNumber},
		{"Full name", &req.FullName},
		{"Username", &req.Username},
	} {
		v, err := promptLine(a.reader, a.out, f.prompt)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	password, err := promptPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	req.Password = string(password)

	u, err := a.authService.Register(ctx, req)
	if err != nil {
		return err
	}

	a.setUser(u.Username)
	printlnFn("Welcome,", u.FullName)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	mobile, err := promptLine(a.reader, a.out, "Mobile number")
	if err != nil {
		return err
	}

	password, err := promptPassword(a.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.authService.Login(ctx, mobile, password)
	if err != nil {
		return err
	}

	a.setUser(u.Username)
	printlnFn("Login successful")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	s, err := a.authService.WhoAmI(ctx)
	if err != nil {
		a.forgetOnExpiry(err)
		return err
	}
	printlnFn(fmt.Sprintf("%s (%s), user id %s", s.Username, s.MobileNumber, s.UserID))
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.authService.Refresh(ctx); err != nil {
		a.forgetOnExpiry(err)
		return err
	}
	printlnFn("Session extended")
	return nil
}

// Touch extends the session if the activity throttle allows it.
func (a *App) Touch(ctx context.Context) error {
	err := a.authService.Touch(ctx)
	a.forgetOnExpiry(err)
	return err
}

// Avatar uploads the image at path as the user's avatar.
func (a *App) Avatar(ctx context.Context, path string) error {
	image, err := readFile(path)
	if err != nil {
		return err
	}

	url, err := a.authService.UploadAvatar(ctx, http.DetectContentType(image), image)
	if err != nil {
		a.forgetOnExpiry(err)
		return err
	}
	printlnFn("Avatar uploaded:", url)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	err := a.authService.Logout(ctx)
	a.setUser("")
	if err != nil {
		return err
	}
	printlnFn("Logged out")
	return nil
}

func (a *App) forgetOnExpiry(err error) {
	if errors.Is(err, client.ErrSessionExpired) || errors.Is(err, client.ErrNotLoggedIn) {
		a.setUser("")
	}
}
