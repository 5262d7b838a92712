// Package browser holds the chromedp allocator settings shared by the timeline
// scraper, the login flow and the bot-test command.
package browser

import (
	"os"

	"github.com/chromedp/chromedp"
)

// DefaultUserAgent is a realistic Chrome user agent
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// ExecPathEnv points chromedp at a specific Chrome binary when set
const ExecPathEnv = "POSTLENS_CHROME_PATH"

// Options returns allocator options that keep x.com from flagging the session
// as automated. extra is appended last so callers can override any flag.
func Options(headless bool, extra ...chromedp.ExecAllocatorOption) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+12+len(extra))
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", headless),

		// X checks navigator.webdriver
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(DefaultUserAgent),
		chromedp.WindowSize(1920, 1080),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	if headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	if path := os.Getenv(ExecPathEnv); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}

	return append(opts, extra...)
}
