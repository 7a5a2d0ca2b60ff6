package graph

import (
	"errors"
	"fmt"

	"github.com/msalah0e/funnel/internal/geom"
)

var ErrUnknownTemplate = errors.New("unknown node template")

// Template describes the defaults a node inherits from its type.
type Template struct {
	Key         string   `json:"key"`
	Category    Category `json:"category"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Color       string   `json:"color"`
}

var categoryColors = map[Category]string{
	CategoryAcquisition:   "#0171E3",
	CategorySystem:        "#9B59B6",
	CategoryCommunication: "#E07C3A",
	CategoryConversion:    "#2DB682",
	CategoryCustom:        "#607D8B",
}

var catalog = []Template{
	{"google_ads", CategoryAcquisition, "Google Ads", "Paid search and display campaigns", "search", "#4285F4"},
	{"meta_ads", CategoryAcquisition, "Meta Ads", "Facebook and Instagram paid campaigns", "megaphone", "#1877F2"},
	{"organic_search", CategoryAcquisition, "Organic Search", "SEO traffic", "globe", ""},
	{"social_organic", CategoryAcquisition, "Social Media", "Organic social posts", "share", ""},
	{"referral", CategoryAcquisition, "Referral", "Partner and customer referrals", "users", ""},
	{"email_list", CategoryAcquisition, "Email List", "Existing subscriber base", "inbox", ""},

	{"landing_page", CategorySystem, "Landing Page", "Capture page for the campaign", "layout", ""},
	{"form", CategorySystem, "Form", "Lead capture form", "clipboard", ""},
	{"crm", CategorySystem, "CRM", "Lead record in the CRM", "database", ""},
	{"webhook", CategorySystem, "Webhook", "Hand-off to an external system", "link", ""},

	{"email", CategoryCommunication, "Email", "Email touchpoint", "mail", ""},
	{"sms", CategoryCommunication, "SMS", "Text message touchpoint", "message-square", ""},
	{"whatsapp", CategoryCommunication, "WhatsApp", "WhatsApp conversation", "message-circle", "#25D366"},
	{"call", CategoryCommunication, "Call", "Sales or follow-up call", "phone", ""},

	{"purchase", CategoryConversion, "Purchase", "Completed sale", "shopping-cart", ""},
	{"meeting", CategoryConversion, "Meeting Booked", "Scheduled meeting", "calendar", ""},
	{"signup", CategoryConversion, "Sign Up", "Account or trial created", "user-plus", ""},
	{"lost", CategoryConversion, "Lost", "Lead left the funnel", "x-circle", "#E74C3C"},
}

// Templates returns the template catalog in display order.
func Templates() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog)
	return out
}

// LookupTemplate finds a template by key.
func LookupTemplate(key string) (Template, bool) {
	for _, t := range catalog {
		if t.Key == key {
			return t, true
		}
	}
	return Template{}, false
}

// NewNodeFromTemplate builds an unsaved node carrying the template's
// descriptor. The id is assigned by Graph.AddNode.
func NewNodeFromTemplate(key string, pos geom.Point) (Node, error) {
	t, ok := LookupTemplate(key)
	if !ok {
		return Node{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, key)
	}
	return Node{
		Type:        t.Key,
		Category:    t.Category,
		Label:       t.Label,
		Description: t.Description,
		Icon:        t.Icon,
		Position:    pos,
		Config:      map[string]any{},
	}, nil
}

// NewCustomNode builds a free-form node that carries its own descriptor.
func NewCustomNode(label, description, icon, color string, pos geom.Point) Node {
	if icon == "" {
		icon = "box"
	}
	return Node{
		Type:        CustomType,
		Category:    CategoryCustom,
		Label:       label,
		Description: description,
		Icon:        icon,
		Color:       color,
		Position:    pos,
		Config:      map[string]any{},
	}
}

// Appearance is what a renderer needs to draw a node.
type Appearance struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

// Appearance resolves the node's own fields over its template over the
// category default. Every node renders through this, custom or not.
func (n Node) Appearance() Appearance {
	t, _ := LookupTemplate(n.Type)
	a := Appearance{
		Label: firstNonEmpty(n.Label, t.Label, n.Type),
		Icon:  firstNonEmpty(n.Icon, t.Icon, "box"),
		Color: firstNonEmpty(n.Color, t.Color, categoryColors[n.Category], categoryColors[CategoryCustom]),
	}
	return a
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
