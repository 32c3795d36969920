// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// login.go - Sign-in and sign-out command handlers.
//
// Command: login
// Short:   Sign in to the Clarity backend
//
// Examples:
//   clarity login                 Email + password (OTP step if required)
//   clarity login --google        Paste-token Google sign-in
//
// The issued credential is encrypted and cached on disk; every later command
// picks it up automatically.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/authcache"
	"github.com/clarity-hq/clarity-tui/internal/config"
)

// HandleLogin handles the login command.
func HandleLogin(args Args) {
	cfg := config.Global()
	cache := openCache(cfg)
	client := newClient(cfg, cache)

	if cred := cache.Load(); cred.LoggedIn() {
		fmt.Println(infoStyle.Render("Already signed in as " + cred.Email + ". Run `clarity logout` first to switch accounts."))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var resp *api.AuthResponse
	var err error
	if args.Google {
		resp, err = googleLogin(ctx, client, cfg.API.BaseURL)
	} else {
		resp, err = passwordLogin(ctx, client)
	}
	if err != nil {
		printRequestError(err)
		os.Exit(1)
	}

	if !resp.LoggedIn() {
		fmt.Println(warningStyle.Render("The server did not issue a credential: " + resp.Message))
		os.Exit(1)
	}

	cred := authcache.Credential{
		Token:       resp.AccessToken,
		UserID:      resp.User.ID,
		Email:       resp.User.Email,
		DisplayName: resp.User.DisplayName,
	}
	if err := cache.Store(cred); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: signed in, but caching the credential failed: %v\n", err)
	}
	fmt.Println(commandStyle.Render("Signed in as " + cred.DisplayName + " <" + cred.Email + ">"))
}

// passwordLogin runs the interactive email+password flow, including the OTP
// step for accounts that still need verification.
func passwordLogin(ctx context.Context, client *api.Client) (*api.AuthResponse, error) {
	email, err := readLine("Email: ")
	if err != nil {
		return nil, err
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}

	resp, err := client.Login(ctx, api.LoginRequest{Email: email, Password: string(password)})
	if err != nil {
		return nil, err
	}

	// An unverified account gets an emailed code before the credential.
	if resp.Message == api.StatusCreated {
		fmt.Println(infoStyle.Render("Check your email; the account needs a one-time code."))
		otp, err := readLine("Code: ")
		if err != nil {
			return nil, err
		}
		return client.VerifyOTP(ctx, api.VerifyOTPRequest{Email: email, OTP: otp})
	}
	return resp, nil
}

// googleLogin runs the paste-token Google flow: the user completes the
// browser consent and pastes the issued token back.
func googleLogin(ctx context.Context, client *api.Client, baseURL string) (*api.AuthResponse, error) {
	fmt.Println(infoStyle.Render("Open " + baseURL + api.EndpointGoogleSignIn + " in a browser,"))
	fmt.Println(infoStyle.Render("complete the Google consent, then paste the issued token."))

	token, err := readLine("Token: ")
	if err != nil {
		return nil, err
	}
	return client.GoogleSignIn(ctx, api.GoogleSignInRequest{Credential: token})
}

// readLine reads one trimmed line from stdin.
func readLine(prompt string) (string, error) {
	fmt.Print(promptStyle.Render(prompt))
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// HandleLogout handles the logout command: revoke the token server-side, then
// clear the local record either way.
func HandleLogout(args Args) {
	cfg := config.Global()
	cache := openCache(cfg)

	if !cache.Load().LoggedIn() {
		fmt.Println(infoStyle.Render("Not signed in."))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	client := newClient(cfg, cache)
	if _, err := client.Logout(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: server-side logout failed: %v\n", err)
	}

	if err := cache.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not clear the credential cache: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(commandStyle.Render("Signed out."))
}
