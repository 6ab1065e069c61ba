// Package doctor reports configuration problems before the relay starts.
package doctor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattjoyce/imagerelay/internal/config"
)

// Reply tokens expire roughly a minute after the event is sent.
const replyTokenLifetime = time.Minute

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration.
type Doctor struct {
	cfg        *config.Config
	configPath string
}

// New creates a Doctor. configPath may be empty when the configuration came
// from the environment alone.
func New(cfg *config.Config, configPath string) *Doctor {
	return &Doctor{cfg: cfg, configPath: configPath}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate() *Result {
	r := &Result{Valid: true}

	d.validateConfig(r)
	d.warnSkipVerification(r)
	d.warnTimeouts(r)
	d.warnImageSettings(r)
	d.warnMirrorDir(r)
	d.warnUnlockedConfig(r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// validateConfig expands the joined validation error into one issue each.
func (d *Doctor) validateConfig(r *Result) {
	err := d.cfg.Validate()
	if err == nil {
		return
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		d.addError(r, "config", fieldOf(err.Error()), err.Error())
		return
	}
	for _, e := range joined.Unwrap() {
		d.addError(r, "config", fieldOf(e.Error()), e.Error())
	}
}

// fieldOf extracts the leading dotted config key from a validation message.
func fieldOf(msg string) string {
	key, _, _ := strings.Cut(msg, " ")
	key = strings.TrimSuffix(key, ":")
	if !strings.Contains(key, ".") {
		return ""
	}
	return key
}

func (d *Doctor) warnSkipVerification(r *Result) {
	if d.cfg.Webhook.SkipSignatureVerification {
		d.addWarning(r, "security", "webhook.skip_signature_verification",
			"signature verification is disabled; anyone who can reach the endpoint can trigger uploads")
	}
}

func (d *Doctor) warnTimeouts(r *Result) {
	if d.cfg.Webhook.ProcessTimeout >= replyTokenLifetime {
		d.addWarning(r, "timeouts", "webhook.process_timeout",
			fmt.Sprintf("%s exceeds the reply token lifetime; late replies will be rejected", d.cfg.Webhook.ProcessTimeout))
	}
	longest := max(d.cfg.Line.Timeout, d.cfg.Store.Timeout)
	if d.cfg.Webhook.ProcessTimeout > 0 && longest > d.cfg.Webhook.ProcessTimeout {
		d.addWarning(r, "timeouts", "webhook.process_timeout",
			fmt.Sprintf("a single stage may take %s, longer than the %s batch budget", longest, d.cfg.Webhook.ProcessTimeout))
	}
}

func (d *Doctor) warnImageSettings(r *Result) {
	if d.cfg.Image.MaxWidth > 4096 {
		d.addWarning(r, "image", "image.max_width",
			fmt.Sprintf("max_width %d is unusually large; uploads may be slow", d.cfg.Image.MaxWidth))
	}
	if d.cfg.Image.Quality > 0 && d.cfg.Image.Quality < 40 {
		d.addWarning(r, "image", "image.quality",
			fmt.Sprintf("quality %d will produce visible artifacts", d.cfg.Image.Quality))
	}
}

func (d *Doctor) warnMirrorDir(r *Result) {
	dir := d.cfg.Store.MirrorDir
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		d.addError(r, "mirror", "store.mirror_dir", fmt.Sprintf("%q exists and is not a directory", dir))
	case errors.Is(err, os.ErrNotExist):
		d.addWarning(r, "mirror", "store.mirror_dir", fmt.Sprintf("%q does not exist yet; it will be created on first upload", dir))
	case err != nil:
		d.addError(r, "mirror", "store.mirror_dir", err.Error())
	}
}

// warnUnlockedConfig flags a config file that has no checksum manifest.
func (d *Doctor) warnUnlockedConfig(r *Result) {
	if d.configPath == "" {
		return
	}
	manifest := filepath.Join(filepath.Dir(d.configPath), config.ChecksumFile)
	if _, err := os.Stat(manifest); errors.Is(err, os.ErrNotExist) {
		d.addWarning(r, "integrity", "",
			fmt.Sprintf("no %s next to %s; run 'imagerelay config lock' to pin it", config.ChecksumFile, filepath.Base(d.configPath)))
	}
}

// FormatHuman returns a human-readable validation report.
func FormatHuman(r *Result) string {
	var b strings.Builder

	if r.Valid && len(r.Warnings) == 0 {
		b.WriteString("Configuration valid.\n")
		return b.String()
	}

	if r.Valid && len(r.Warnings) > 0 {
		b.WriteString("Configuration valid")
		fmt.Fprintf(&b, " (%d warning(s))\n", len(r.Warnings))
	}

	if !r.Valid {
		fmt.Fprintf(&b, "Configuration invalid (%d error(s), %d warning(s))\n", len(r.Errors), len(r.Warnings))
	}

	for _, e := range r.Errors {
		if e.Field != "" {
			fmt.Fprintf(&b, "  ERROR [%s] %s: %s\n", e.Category, e.Field, e.Message)
		} else {
			fmt.Fprintf(&b, "  ERROR [%s] %s\n", e.Category, e.Message)
		}
	}
	for _, w := range r.Warnings {
		if w.Field != "" {
			fmt.Fprintf(&b, "  WARN  [%s] %s: %s\n", w.Category, w.Field, w.Message)
		} else {
			fmt.Fprintf(&b, "  WARN  [%s] %s\n", w.Category, w.Message)
		}
	}

	return b.String()
}

// FormatJSON returns the result as indented JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
