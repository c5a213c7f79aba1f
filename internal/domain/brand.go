package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Brand is a product manufacturer. Names and slugs are unique.
type Brand struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        Slug      `json:"slug"`
	Description string    `json:"description"`
	LogoURL     string    `json:"logo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type BrandDraft struct {
	Name        string
	Slug        string
	Description string
	LogoURL     string
}

func NewBrand(d BrandDraft, now time.Time) (*Brand, error) {
	b := &Brand{ID: uuid.New(), CreatedAt: now.UTC()}
	if err := b.Apply(d, now); err != nil {
		return nil, err
	}
	return b, nil
}

// Apply replaces the brand's mutable fields with a validated draft
func (b *Brand) Apply(d BrandDraft, now time.Time) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return NewValidationError("name", "must not be empty", nil)
	}
	if len(name) > maxNameLength {
		return NewValidationError("name", fmt.Sprintf("must be at most %d characters", maxNameLength), len(name))
	}
	var slug Slug
	var err error
	if strings.TrimSpace(d.Slug) == "" {
		slug, err = slugFromName(name)
	} else {
		slug, err = ParseSlug(d.Slug)
	}
	if err != nil {
		return err
	}
	logo := strings.TrimSpace(d.LogoURL)
	if logo != "" {
		u, err := url.Parse(logo)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return NewValidationError("logo_url", "must be an absolute http(s) URL", logo)
		}
	}
	b.Name = name
	b.Slug = slug
	b.Description = strings.TrimSpace(d.Description)
	b.LogoURL = logo
	b.UpdatedAt = now.UTC()
	return nil
}
