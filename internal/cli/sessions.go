// internal/cli/sessions.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/campaignpulse/pulse/internal/browser"
	"github.com/campaignpulse/pulse/internal/session"
	"github.com/campaignpulse/pulse/pkg/models"
)

// loginTimeout bounds an interactive login: long enough to type a password
// or scan a QR code, short enough that an abandoned terminal gives up.
const loginTimeout = 5 * time.Minute

// loginURLs is where each platform's login flow starts.
var loginURLs = map[models.Platform]string{
	models.PlatformXiaohongshu: "https://www.xiaohongshu.com/explore",
	models.PlatformInstagram:   "https://www.instagram.com/accounts/login/",
	models.PlatformFacebook:    "https://www.facebook.com/login",
	models.PlatformDcard:       "https://www.dcard.tw/login",
	models.PlatformYouTube:     "https://www.youtube.com",
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage stored platform login sessions",
	Long: `Manage the per-platform authentication sessions used by the crawler.

Sessions are stored in the OS keyring when available, otherwise as files
under ~/.pulse/sessions.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List platforms with a stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		platforms, err := a.Sessions.List()
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if len(platforms) == 0 {
			fmt.Println("No stored sessions.")
			return nil
		}
		for _, p := range platforms {
			status := "ok"
			data, err := a.Sessions.Load(p)
			switch {
			case err != nil:
				status = "expired"
			case !data.HasRequiredCookies():
				status = "missing required cookies"
			}
			fmt.Printf("%-14s %s\n", p.DisplayName(), status)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <platform>",
	Short: "Delete the stored session for a platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		platform, ok := models.ParsePlatform(args[0])
		if !ok {
			return fmt.Errorf("unknown platform %q", args[0])
		}
		if err := a.Sessions.Delete(platform); err != nil {
			return err
		}
		fmt.Printf("Deleted session for %s.\n", platform.DisplayName())
		return nil
	},
}

var sessionsImportCmd = &cobra.Command{
	Use:   "import <platform> <cookies.json>",
	Short: "Import cookies exported from a browser",
	Long: `Import cookies into a platform session from a JSON file.

The file is either a plain {"name": "value", ...} object, as produced by
simple cookie-export extensions, or a full cookie array with domain, path
and expiry fields.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		platform, ok := models.ParsePlatform(args[0])
		if !ok {
			return fmt.Errorf("unknown platform %q", args[0])
		}

		raw, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read cookie file: %w", err)
		}

		data, err := a.Sessions.Load(platform)
		if err != nil {
			data = &session.Data{Platform: platform}
		}

		var full []session.Cookie
		if err := json.Unmarshal(raw, &full); err == nil {
			data.Cookies = full
		} else {
			var pairs map[string]string
			if err := json.Unmarshal(raw, &pairs); err != nil {
				return fmt.Errorf("cookie file is neither a cookie array nor a name/value object: %w", err)
			}
			data.MergeCookieMap(pairs, cookieDomain(platform))
		}

		if err := a.Sessions.Save(data); err != nil {
			return err
		}
		if !data.HasRequiredCookies() {
			fmt.Fprintf(os.Stderr, "warning: session still missing required cookies %v\n",
				session.RequiredCookies(platform))
		}
		fmt.Printf("Imported %d cookies for %s.\n", len(data.Cookies), platform.DisplayName())
		return nil
	},
}

var sessionsLoginCmd = &cobra.Command{
	Use:   "login <platform>",
	Short: "Log in to a platform interactively",
	Long: `Open a visible browser window on the platform's login page and wait for
you to complete the login. Once the required cookies appear, the session
is saved for future crawls.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		platform, ok := models.ParsePlatform(args[0])
		if !ok {
			return fmt.Errorf("unknown platform %q", args[0])
		}
		if a.Config.Restricted {
			return fmt.Errorf("interactive login needs a display; import cookies instead")
		}

		b, err := browser.New(cmd.Context(), platform, a.Sessions, browser.Options{
			Headless: false,
			Proxy:    a.Config.Proxy,
			Timeout:  a.Config.NavTimeout,
		})
		if err != nil {
			return err
		}
		defer b.Close()

		if err := b.Navigate(cmd.Context(), loginURLs[platform]); err != nil {
			return err
		}

		required := session.RequiredCookies(platform)
		if len(required) == 0 {
			fmt.Printf("%s does not need a login; browsing anonymously works.\n",
				platform.DisplayName())
			return nil
		}

		fmt.Printf("Complete the %s login in the browser window...\n", platform.DisplayName())
		deadline := time.Now().Add(loginTimeout)
		for time.Now().Before(deadline) {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if hasAll(b, required) {
				fmt.Println("Login detected, session saved.")
				return nil
			}
			time.Sleep(2 * time.Second)
		}
		return fmt.Errorf("login not completed within %s", loginTimeout)
	},
}

func hasAll(b *browser.Session, names []string) bool {
	for _, name := range names {
		if b.CookieValue(name) == "" {
			return false
		}
	}
	return true
}

// cookieDomain gives the domain imported name/value cookies are scoped to.
func cookieDomain(platform models.Platform) string {
	switch platform {
	case models.PlatformXiaohongshu:
		return ".xiaohongshu.com"
	case models.PlatformYouTube:
		return ".youtube.com"
	case models.PlatformInstagram:
		return ".instagram.com"
	case models.PlatformFacebook:
		return ".facebook.com"
	case models.PlatformDcard:
		return ".dcard.tw"
	}
	return ""
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsImportCmd)
	sessionsCmd.AddCommand(sessionsLoginCmd)
}
