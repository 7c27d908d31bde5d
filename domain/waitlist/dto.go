package waitlist

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/akeren/cv99x-waitlist/internal/models"
	"github.com/akeren/cv99x-waitlist/pkg/constants"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Input keys accepted from the submission body. Anything else is dropped.
const (
	FieldName         = "name"
	FieldEmail        = "email"
	FieldFrustration  = "frustration"
	FieldDream        = "dream"
	FieldPriceRange   = "priceRange"
	FieldPaymentStyle = "paymentStyle"
	FieldHeardFrom    = "heardFrom"
	FieldBotField     = "botField"
	FieldSource       = "source"
)

const MessageNameAndEmailRequired = "Name and email are required."

var emailCaser = cases.Lower(language.Und)

// SubmitWaitlistRequest is the allow-listed projection of a submission body.
type SubmitWaitlistRequest struct {
	Name         string  `json:"name" validate:"required"`
	Email        string  `json:"email" validate:"required"`
	Frustration  *string `json:"frustration"`
	Dream        *string `json:"dream"`
	PriceRange   *string `json:"priceRange"`
	PaymentStyle *string `json:"paymentStyle"`
	HeardFrom    *string `json:"heardFrom"`
	Source       *string `json:"source"`

	// BotTriggered is set when the honeypot field carried a truthy value.
	BotTriggered bool `json:"-"`
}

type WaitlistEntryResponse struct {
	ID           uint    `json:"id,omitempty"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Frustration  *string `json:"frustration"`
	Dream        *string `json:"dream"`
	PriceRange   *string `json:"priceRange"`
	PaymentStyle *string `json:"paymentStyle"`
	HeardFrom    *string `json:"heardFrom"`
	BotField     string  `json:"botField"`
	Source       string  `json:"source"`
	CreatedAt    string  `json:"created_at,omitempty"`
	UpdatedAt    string  `json:"updated_at"`
}

// SubmissionResult is what a successful submission produced. A suppressed
// submission (honeypot) carries no entry and was never persisted.
type SubmissionResult struct {
	Suppressed bool
	Entry      *WaitlistEntryResponse
}

// ParseSubmission projects a decoded JSON body onto the fixed request shape.
// Non-object bodies behave like an empty object.
func ParseSubmission(body any) *SubmitWaitlistRequest {
	fields, _ := body.(map[string]any)

	return &SubmitWaitlistRequest{
		Name:         trimSpace(coerceString(fields[FieldName])),
		Email:        emailCaser.String(trimSpace(coerceString(fields[FieldEmail]))),
		Frustration:  optionalString(fields, FieldFrustration),
		Dream:        optionalString(fields, FieldDream),
		PriceRange:   optionalString(fields, FieldPriceRange),
		PaymentStyle: optionalString(fields, FieldPaymentStyle),
		HeardFrom:    optionalString(fields, FieldHeardFrom),
		Source:       optionalString(fields, FieldSource),
		BotTriggered: isTruthy(fields[FieldBotField]),
	}
}

// trimSpace strips the whitespace set a browser trims: Unicode spaces and the
// byte order mark, but not U+0085.
func trimSpace(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '\uFEFF' || (r != '\u0085' && unicode.IsSpace(r))
	})
}

// coerceString renders values the way a browser would stringify them. Arrays
// join their elements with ","; null, absent and objects become "".
func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return formatNumber(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, elem := range t {
			parts[i] = coerceString(elem)
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// formatNumber uses plain decimals for 1e-6 <= |f| < 1e21 and a short
// exponent ("1e+21", "1.5e-7") outside that range.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}

	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}

// optionalString keeps "" as "", maps absent/null to nil and coerces other scalars.
func optionalString(fields map[string]any, key string) *string {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil
	}

	switch v.(type) {
	case string, float64, bool:
		s := coerceString(v)
		return &s
	default:
		return nil
	}
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	default:
		// objects and arrays
		return true
	}
}

// ========================================
// Mappers
// ========================================

func ToWaitlistEntryModel(req *SubmitWaitlistRequest, defaultSource string, now time.Time) *models.WaitlistEntry {
	if req == nil {
		return nil
	}

	source := defaultSource
	if req.Source != nil {
		source = *req.Source
	}

	return &models.WaitlistEntry{
		Name:         req.Name,
		Email:        req.Email,
		Frustration:  req.Frustration,
		Dream:        req.Dream,
		PriceRange:   req.PriceRange,
		PaymentStyle: req.PaymentStyle,
		HeardFrom:    req.HeardFrom,
		BotField:     "",
		Source:       source,
		UpdatedAt:    now,
	}
}

func ToWaitlistEntryResponse(entry *models.WaitlistEntry) WaitlistEntryResponse {
	if entry == nil {
		return WaitlistEntryResponse{}
	}

	response := WaitlistEntryResponse{
		ID:           entry.ID,
		Name:         entry.Name,
		Email:        entry.Email,
		Frustration:  entry.Frustration,
		Dream:        entry.Dream,
		PriceRange:   entry.PriceRange,
		PaymentStyle: entry.PaymentStyle,
		HeardFrom:    entry.HeardFrom,
		BotField:     entry.BotField,
		Source:       entry.Source,
		UpdatedAt:    formatTimestamp(entry.UpdatedAt),
	}
	if !entry.CreatedAt.IsZero() {
		response.CreatedAt = formatTimestamp(entry.CreatedAt)
	}

	return response
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(constants.RFC3339MicroDateTimeFormat)
}
