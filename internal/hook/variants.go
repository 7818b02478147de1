package hook

import (
	"fmt"
	"net/url"
)

// Branding sets the window title, icon and splash screen of the runtime.
type Branding struct {
	TitleText  string
	IconPath   string
	SplashPath string
}

// Title sets the window title.
func (b *Branding) Title(title string) *Branding { b.TitleText = title; return b }

// Icon sets the window icon path.
func (b *Branding) Icon(path string) *Branding { b.IconPath = path; return b }

// Splash sets the splash image path.
func (b *Branding) Splash(path string) *Branding { b.SplashPath = path; return b }

func (b *Branding) Name() string { return "branding" }

func (b *Branding) Properties() map[string]string {
	props := map[string]string{}
	if b.TitleText != "" {
		props["equo.branding.title"] = b.TitleText
	}
	if b.IconPath != "" {
		props["equo.branding.icon"] = b.IconPath
	}
	if b.SplashPath != "" {
		props["equo.branding.splash"] = b.SplashPath
	}
	return props
}

func (b *Branding) ApplyTo(t Target) error {
	sortedProps(t, b.Properties())
	return nil
}

// Welcome opens a page when the runtime first starts.
type Welcome struct {
	URL string
}

// OpenURL sets the page to open.
func (w *Welcome) OpenURL(u string) *Welcome { w.URL = u; return w }

func (w *Welcome) Name() string { return "welcome" }

func (w *Welcome) Properties() map[string]string {
	return map[string]string{"equo.welcome.url": w.URL}
}

func (w *Welcome) ApplyTo(t Target) error {
	if w.URL == "" {
		return fmt.Errorf("welcome page enabled without openUrl")
	}
	if _, err := url.ParseRequestURI(w.URL); err != nil {
		return fmt.Errorf("welcome openUrl %q: %w", w.URL, err)
	}
	sortedProps(t, w.Properties())
	return nil
}

// Chromium bundles and the repository that serves them.
const (
	ChromiumRepository = "https://dl.equo.dev/chromium-swt-ce/oss/p2/"
	ChromiumUnit       = "com.equo.chromium"
)

// EmbeddedBrowser replaces the platform browser widget with Chromium.
type EmbeddedBrowser struct{}

func (EmbeddedBrowser) Name() string { return "embedded-browser" }

func (EmbeddedBrowser) Properties() map[string]string {
	return map[string]string{"equo.browser": "chromium"}
}

func (e EmbeddedBrowser) ApplyTo(t Target) error {
	if err := t.AddRepository(ChromiumRepository); err != nil {
		return err
	}
	if err := t.AddInstall(ChromiumUnit); err != nil {
		return err
	}
	sortedProps(t, e.Properties())
	return nil
}

// Custom adapts a plain function into a hook.
type Custom struct {
	HookName string
	Apply    func(t Target) error
	Props    map[string]string
}

func (c *Custom) Name() string { return c.HookName }

func (c *Custom) Properties() map[string]string { return c.Props }

func (c *Custom) ApplyTo(t Target) error {
	if c.Apply == nil {
		return nil
	}
	return c.Apply(t)
}
