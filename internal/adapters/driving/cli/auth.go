package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/runit-cli/internal/core/domain"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a one-time password",
	Long: `Sign in to the runit platform.

A one-time password is emailed to you. Enter it when prompted, or pass it
with --otp to finish a login started earlier.

Examples:
  runit login
  runit login --email ada@example.com
  runit login --email ada@example.com --otp 123456`,
	RunE: runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE:  runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

var apiKeyCmd = &cobra.Command{
	Use:   "apikey [name]",
	Short: "Generate an API key for server-to-server access",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKey,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update your profile",
	RunE:  runProfile,
}

// Flags for login and signup.
var (
	authEmail   string
	authOTP     string
	authName    string
	authCompany string
	authWebsite string
)

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "account email")
		c.Flags().StringVar(&authOTP, "otp", "", "one-time password (skips sending a new one)")
	}
	signupCmd.Flags().StringVar(&authName, "name", "", "your name")
	signupCmd.Flags().StringVar(&authCompany, "company", "", "company name")
	signupCmd.Flags().StringVar(&authWebsite, "website", "", "company website")

	profileCmd.Flags().StringVar(&authName, "name", "", "new name")
	profileCmd.Flags().StringVar(&authCompany, "company", "", "new company")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(apiKeyCmd)
	rootCmd.AddCommand(profileCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}
	ctx := cmd.Context()
	reader := bufio.NewReader(cmd.InOrStdin())

	email := authEmail
	if email == "" {
		cmd.Print("Email: ")
		email = readLine(reader)
	}

	otp := authOTP
	if otp == "" {
		if err := authService.RequestLoginOTP(ctx, email); err != nil {
			return fmt.Errorf("failed to send code: %w", err)
		}
		cmd.Printf("A one-time password was sent to %s.\n", strings.TrimSpace(email))
		cmd.Print("Code: ")
		otp = readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	session, err := authService.Login(ctx, email, otp)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	printSignedIn(cmd, session)
	return nil
}

func runSignup(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}
	ctx := cmd.Context()
	reader := bufio.NewReader(cmd.InOrStdin())

	req := domain.SignupRequest{
		Email:   authEmail,
		Name:    authName,
		Company: authCompany,
		Website: authWebsite,
	}
	if req.Email == "" {
		cmd.Print("Email: ")
		req.Email = readLine(reader)
	}

	otp := authOTP
	if otp == "" {
		if req.Name == "" {
			cmd.Print("Name: ")
			req.Name = readLine(reader)
		}
		if req.Company == "" {
			cmd.Print("Company (optional): ")
			req.Company = readLine(reader)
		}
		if err := authService.RequestSignupOTP(ctx, req); err != nil {
			return fmt.Errorf("failed to start signup: %w", err)
		}
		cmd.Printf("A one-time password was sent to %s.\n", strings.TrimSpace(req.Email))
		cmd.Print("Code: ")
		otp = readSecret(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	session, err := authService.Signup(ctx, req.Email, otp)
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}
	printSignedIn(cmd, session)
	return nil
}

func printSignedIn(cmd *cobra.Command, session *domain.Session) {
	name := session.Profile.Name
	if name == "" {
		name = session.Profile.Email
	}
	cmd.Printf("Signed in as %s", name)
	if session.Profile.IsAdmin() {
		cmd.Print(" (admin)")
	}
	cmd.Println()
}

func runLogout(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}
	if err := authService.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	cmd.Println("Signed out.")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	session, err := authService.Current(cmd.Context())
	if err != nil {
		return friendlyError(err)
	}

	p := session.Profile
	cmd.Printf("Email:   %s\n", p.Email)
	if p.Name != "" {
		cmd.Printf("Name:    %s\n", p.Name)
	}
	if p.Company != "" {
		cmd.Printf("Company: %s\n", p.Company)
	}
	role := p.Role
	if role == "" {
		role = string(domain.ScopeUser)
	}
	cmd.Printf("Role:    %s\n", role)
	if p.BrokerID != "" {
		cmd.Printf("Website: %s\n", p.BrokerID)
	}
	cmd.Printf("Token:   %s\n", maskToken(session.Token))
	if !session.ExpiresAt.IsZero() {
		cmd.Printf("Expires: %s\n", session.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runAPIKey(cmd *cobra.Command, args []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}

	key, err := authService.GenerateAPIKey(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to generate API key: %w", friendlyError(err))
	}
	cmd.Printf("API key %q created. It is shown only once:\n\n  %s\n", key.Name, key.Key)
	return nil
}

func runProfile(cmd *cobra.Command, _ []string) error {
	if authService == nil {
		return errors.New("auth service not configured")
	}
	if authName == "" && authCompany == "" {
		return errors.New("nothing to update: pass --name or --company")
	}

	p, err := authService.UpdateProfile(cmd.Context(), domain.ProfileUpdate{Name: authName, Company: authCompany})
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", friendlyError(err))
	}
	cmd.Printf("Profile updated: %s", p.Name)
	if p.Company != "" {
		cmd.Printf(" (%s)", p.Company)
	}
	cmd.Println()
	return nil
}
