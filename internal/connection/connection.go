package connection

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("sms connection not found")
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrPhoneClaimed    = errors.New("phone number already registered to another user")
	ErrInvalidSettings = errors.New("invalid sms settings")
)

const (
	MinAllowedConfidence = 0.5
	MaxAllowedConfidence = 1.0
)

type Permissions struct {
	ReadSMS      bool `json:"readSMS"`
	AutoProcess  bool `json:"autoProcess"`
	RealTimeSync bool `json:"realTimeSync"`
}

type Settings struct {
	AutoApprove     bool     `json:"autoApprove"`
	MinConfidence   float64  `json:"minConfidence"`
	Categories      []string `json:"categories"`
	ExcludeKeywords []string `json:"excludeKeywords"`
}

// SettingsPatch carries a partial settings update; nil fields are kept.
type SettingsPatch struct {
	AutoApprove     *bool
	MinConfidence   *float64
	Categories      *[]string
	ExcludeKeywords *[]string
}

// Connection is a user's real-time SMS monitoring registration.
type Connection struct {
	UserID         uuid.UUID
	PhoneNumber    string
	IsActive       bool
	Permissions    Permissions
	Settings       Settings
	LastSyncTime   *time.Time
	TotalProcessed int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a deep copy so stores never share slices with callers.
func (c *Connection) Clone() *Connection {
	cp := *c
	cp.Settings.Categories = slices.Clone(c.Settings.Categories)
	cp.Settings.ExcludeKeywords = slices.Clone(c.Settings.ExcludeKeywords)

	if c.LastSyncTime != nil {
		t := *c.LastSyncTime
		cp.LastSyncTime = &t
	}

	return &cp
}

func (s Settings) Validate() error {
	if s.MinConfidence < MinAllowedConfidence || s.MinConfidence > MaxAllowedConfidence {
		return fmt.Errorf("%w: minConfidence must be within [%.1f, %.1f]",
			ErrInvalidSettings, MinAllowedConfidence, MaxAllowedConfidence)
	}

	return nil
}

// Apply returns s with every non-nil field of p applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.AutoApprove != nil {
		s.AutoApprove = *p.AutoApprove
	}

	if p.MinConfidence != nil {
		s.MinConfidence = *p.MinConfidence
	}

	if p.Categories != nil {
		s.Categories = slices.Clone(*p.Categories)
	}

	if p.ExcludeKeywords != nil {
		s.ExcludeKeywords = slices.Clone(*p.ExcludeKeywords)
	}

	return s
}

// excludes reports whether message contains any excluded keyword.
func (s Settings) excludes(message string) bool {
	lower := strings.ToLower(message)

	for _, kw := range s.ExcludeKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}

	return false
}

// allowsCategory is true when no category allow-list is set or category is on it.
func (s Settings) allowsCategory(category string) bool {
	if len(s.Categories) == 0 {
		return true
	}

	for _, c := range s.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}

	return false
}

var (
	phoneRe       = regexp.MustCompile(`^\+?[1-9]\d{9,14}$`)
	phoneStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// NormalizePhone strips formatting characters and checks the result loosely
// against the international number format.
func NormalizePhone(raw string) (string, error) {
	phone := phoneStripper.Replace(strings.TrimSpace(raw))
	if !phoneRe.MatchString(phone) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}

	return phone, nil
}
