package browser

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Driver runs primitive operations against one remote browser page and
// captures page state for the interpreter. The production implementation
// drives the browser over its CDP endpoint through Playwright; tests use
// in-memory stubs.
type Driver interface {
	// URL returns the page's current address.
	URL(ctx context.Context) (string, error)

	// Title returns the page title.
	Title(ctx context.Context) (string, error)

	// Content returns the page's raw HTML.
	Content(ctx context.Context) (string, error)

	// Navigate loads the given URL and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Click clicks the element matching the selector.
	Click(ctx context.Context, selector string) error

	// Fill sets the value of the input matching the selector.
	Fill(ctx context.Context, selector, value string) error

	// Press sends a key press to the element matching the selector.
	Press(ctx context.Context, selector, key string) error

	// Scroll scrolls the page vertically by delta pixels (signed decimal
	// string; positive scrolls down).
	Scroll(ctx context.Context, delta string) error

	// WaitFor blocks until the element matching the selector is visible.
	WaitFor(ctx context.Context, selector string) error

	// Close releases the driver's local resources. It never touches the
	// remote browser process; the agent owns that.
	Close() error
}

// ConnectCDP is the production Connector: it attaches Playwright to the
// remote browser's CDP endpoint and drives the first available page. The
// remote browser already exists, so this launches nothing locally.
func ConnectCDP(ctx context.Context, endpointURL string) (Driver, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.ConnectOverCDP(endpointURL)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to connect to CDP endpoint %s: %w", endpointURL, err)
	}

	var browserCtx playwright.BrowserContext
	if contexts := browser.Contexts(); len(contexts) > 0 {
		browserCtx = contexts[0]
	} else {
		browserCtx, err = browser.NewContext()
		if err != nil {
			_ = browser.Close()
			_ = pw.Stop()
			return nil, fmt.Errorf("failed to create browser context: %w", err)
		}
	}

	var page playwright.Page
	if pages := browserCtx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = browserCtx.NewPage()
		if err != nil {
			_ = browser.Close()
			_ = pw.Stop()
			return nil, fmt.Errorf("failed to open page: %w", err)
		}
	}

	return &cdpDriver{pw: pw, browser: browser, page: page}, nil
}

// cdpDriver drives a page attached over CDP.
type cdpDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

func (d *cdpDriver) URL(ctx context.Context) (string, error) {
	return d.page.URL(), nil
}

func (d *cdpDriver) Title(ctx context.Context) (string, error) {
	title, err := d.page.Title()
	if err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return title, nil
}

func (d *cdpDriver) Content(ctx context.Context) (string, error) {
	content, err := d.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return content, nil
}

func (d *cdpDriver) Navigate(ctx context.Context, url string) error {
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		Timeout: remainingMillis(ctx),
	})
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (d *cdpDriver) Click(ctx context.Context, selector string) error {
	err := d.page.Click(selector, playwright.PageClickOptions{
		Timeout: remainingMillis(ctx),
	})
	if err != nil {
		return fmt.Errorf("click on %q failed: %w", selector, err)
	}
	return nil
}

func (d *cdpDriver) Fill(ctx context.Context, selector, value string) error {
	err := d.page.Fill(selector, value, playwright.PageFillOptions{
		Timeout: remainingMillis(ctx),
	})
	if err != nil {
		return fmt.Errorf("fill of %q failed: %w", selector, err)
	}
	return nil
}

func (d *cdpDriver) Press(ctx context.Context, selector, key string) error {
	err := d.page.Press(selector, key, playwright.PagePressOptions{
		Timeout: remainingMillis(ctx),
	})
	if err != nil {
		return fmt.Errorf("press of %q on %q failed: %w", key, selector, err)
	}
	return nil
}

func (d *cdpDriver) Scroll(ctx context.Context, delta string) error {
	dy, err := strconv.ParseFloat(delta, 64)
	if err != nil {
		return fmt.Errorf("invalid scroll delta %q: %w", delta, err)
	}
	if err := d.page.Mouse().Wheel(0, dy); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

func (d *cdpDriver) WaitFor(ctx context.Context, selector string) error {
	_, err := d.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: remainingMillis(ctx),
	})
	if err != nil {
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
	return nil
}

// Close detaches from the remote browser and stops the local Playwright
// process. The remote browser keeps running until the agent stops it.
func (d *cdpDriver) Close() error {
	if err := d.browser.Close(); err != nil {
		_ = d.pw.Stop()
		return fmt.Errorf("failed to detach from browser: %w", err)
	}
	if err := d.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

// remainingMillis converts the context deadline into a Playwright timeout.
// Nil means Playwright's own default applies; the agent always sets a
// deadline, so this is a safety net, not the normal path.
func remainingMillis(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return &ms
}
