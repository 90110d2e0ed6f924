package model

import (
	"net/url"
	"slices"
	"strings"
	"time"
)

// Category is one of the fixed kinds of link a profile can carry.
type Category string

const (
	ProfilePicture Category = "profile_picture"
	Twitter        Category = "twitter"
	Instagram      Category = "instagram"
	Facebook       Category = "facebook"
	LinkedIn       Category = "linkedin"
	YouTube        Category = "youtube"
	Others         Category = "others"
)

// Categories lists every category in display order. Forms and profile
// pages iterate this slice, so its order is the order users see.
var Categories = []Category{
	ProfilePicture,
	Twitter,
	Instagram,
	Facebook,
	LinkedIn,
	YouTube,
	Others,
}

// handlePrefixes maps categories whose input is a bare handle to the URL
// the handle is appended to.
var handlePrefixes = map[Category]string{
	Instagram: "https://www.instagram.com/",
	Twitter:   "https://www.twitter.com/",
}

var labels = map[Category]string{
	ProfilePicture: "Profile picture",
	Twitter:        "Twitter",
	Instagram:      "Instagram",
	Facebook:       "Facebook",
	LinkedIn:       "LinkedIn",
	YouTube:        "YouTube",
	Others:         "Others",
}

func (c Category) String() string { return string(c) }

// Label is the human-readable name used in templates.
func (c Category) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return string(c)
}

// IsHandle reports whether the category takes a bare handle instead of a URL.
func (c Category) IsHandle() bool {
	_, ok := handlePrefixes[c]
	return ok
}

// Normalize turns a submitted value into the stored link: instagram and
// twitter handles become full profile URLs, everything else is kept verbatim.
func (c Category) Normalize(value string) string {
	if prefix, ok := handlePrefixes[c]; ok {
		return prefix + value
	}
	return value
}

// Handle is the inverse of Normalize, used to prefill the edit form.
func (c Category) Handle(link string) string {
	if prefix, ok := handlePrefixes[c]; ok {
		return strings.TrimPrefix(link, prefix)
	}
	return link
}

// Social is one link on a user's profile. (UserID, Category) is the
// primary key: a user has at most one link per category.
type Social struct {
	UserID    int64     `json:"-"      db:"user_id"    gorm:"primaryKey;autoIncrement:false"`
	Category  Category  `json:"social" db:"social"     gorm:"column:social;primaryKey;size:32"`
	Link      string    `json:"link"   db:"link"       gorm:"size:255;not null"`
	CreatedAt time.Time `json:"-"      db:"created_at"`
	UpdatedAt time.Time `json:"-"      db:"updated_at"`
}

func (Social) TableName() string { return "socials" }

// LinkForm is a submitted edit form: raw values keyed by category.
type LinkForm map[Category]string

// ParseLinkForm reads the recognized categories out of submitted form
// values. Unknown fields are ignored; missing fields are left out.
func ParseLinkForm(values url.Values) LinkForm {
	form := make(LinkForm, len(Categories))
	for _, c := range Categories {
		if _, ok := values[string(c)]; ok {
			form[c] = values.Get(string(c))
		}
	}
	return form
}

// SortSocials orders links by category display order.
func SortSocials(links []Social) {
	slices.SortFunc(links, func(a, b Social) int {
		return slices.Index(Categories, a.Category) - slices.Index(Categories, b.Category)
	})
}
