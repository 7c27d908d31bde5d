// Package waitlistform holds the client-side state machine behind the waitlist
// form: field values, local validation and the single submission request.
package waitlistform

import "github.com/akeren/cv99x-waitlist/pkg/constants"

// SuccessBehavior picks what a successful submission does once the fields are reset.
type SuccessBehavior int

const (
	// SuccessInline shows the success message on the form itself.
	SuccessInline SuccessBehavior = iota
	// SuccessNavigate sends the user to the confirmation view.
	SuccessNavigate
)

const (
	DefaultEndpoint       = "/api/waitlist"
	DefaultSuccessPath    = "/success"
	DefaultSuccessMessage = "You're on the list! We'll notify you as soon as CV99x opens."

	MessageMissingRequired = "Please enter your name and email."
	MessageInvalidEmail    = "Please enter a valid email address."
	MessageSubmitFailed    = "Something went wrong. Please try again shortly."
)

type Option struct {
	Value string
	Label string
}

// FieldSpec describes one user-editable field. Validate holds validator tags
// other than "required", applied to the trimmed value.
type FieldSpec struct {
	Key         string
	Label       string
	Placeholder string
	Required    bool
	Multiline   bool
	Validate    string
	Options     []Option
}

type Definition struct {
	Fields         []FieldSpec
	HoneypotKey    string
	Source         string
	Endpoint       string
	Success        SuccessBehavior
	SuccessPath    string
	SuccessMessage string
}

// DefaultDefinition is the CV99x early-access form with an inline success message.
func DefaultDefinition() Definition {
	return Definition{
		Fields: []FieldSpec{
			{Key: "name", Label: "Full Name", Placeholder: "John Doe", Required: true},
			{Key: "email", Label: "Email", Placeholder: "you@example.com", Required: true, Validate: emailTag},
			{
				Key:       "frustration",
				Label:     "What frustrates you most about creating resumes or job applications today? (optional)",
				Multiline: true,
			},
			{
				Key:       "dream",
				Label:     "If CV99x could guarantee you one thing about your job applications, what would it be? (optional)",
				Multiline: true,
			},
			{
				Key:   "priceRange",
				Label: "How much would you feel comfortable paying per resume + job cover?",
				Options: []Option{
					{Value: "lt_0_50", Label: "Less than $0.80"},
					{Value: "0_50_0_99", Label: "$0.80 – $0.99"},
					{Value: "gt_2", Label: "More than $1"},
				},
			},
			{
				Key:   "paymentStyle",
				Label: "Would you prefer to pay…",
				Options: []Option{
					{Value: "per_job", Label: "Per job (resume + cover generated instantly)"},
					{Value: "bundle_5", Label: "A small bundle (e.g., 5 resumes)"},
				},
			},
			{
				Key:         "heardFrom",
				Label:       "Anything else you'd like us to know? (optional)",
				Placeholder: "Share context, goals, or anything that would help us tailor CV99x.",
				Multiline:   true,
			},
		},
		HoneypotKey:    "botField",
		Source:         constants.DefaultWaitlistSource,
		Endpoint:       DefaultEndpoint,
		Success:        SuccessInline,
		SuccessPath:    DefaultSuccessPath,
		SuccessMessage: DefaultSuccessMessage,
	}
}

// Keys lists every key a Fields snapshot carries, honeypot last.
func (d Definition) Keys() []string {
	keys := make([]string, 0, len(d.Fields)+1)
	for _, f := range d.Fields {
		keys = append(keys, f.Key)
	}
	if d.HoneypotKey != "" {
		keys = append(keys, d.HoneypotKey)
	}
	return keys
}

func (d Definition) withDefaults() Definition {
	if d.Endpoint == "" {
		d.Endpoint = DefaultEndpoint
	}
	if d.SuccessPath == "" {
		d.SuccessPath = DefaultSuccessPath
	}
	if d.SuccessMessage == "" {
		d.SuccessMessage = DefaultSuccessMessage
	}
	return d
}
