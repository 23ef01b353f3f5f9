package validate

// Registration priorities of the built-in validators.
const (
	PriorityFallback = 0
	PriorityBuiltin  = 10
)

// Options extends the built-in lexicons.
type Options struct {
	ExtraCities    []string
	ExtraDenyNouns []string
}

// NewDefaultRegistry registers every built-in validator. The postal-code
// validator goes in first at fallback priority and is superseded by the
// full address validator for the same type. The registry is returned
// unfrozen so callers can add their own validators before freezing.
func NewDefaultRegistry(p Policy, opts Options) (*Registry, error) {
	r := NewRegistry()
	regs := []struct {
		v        Validator
		priority int
	}{
		{NewPostalCodeValidator(p), PriorityFallback},
		{NewEmailValidator(p), PriorityBuiltin},
		{NewPhoneValidator(p), PriorityBuiltin},
		{NewIBANValidator(p), PriorityBuiltin},
		{NewSocialInsuranceValidator(p), PriorityBuiltin},
		{NewVATValidator(p), PriorityBuiltin},
		{NewDateValidator(p), PriorityBuiltin},
		{NewSwissAddressValidator(p, opts.ExtraCities, opts.ExtraDenyNouns), PriorityBuiltin},
	}
	for _, reg := range regs {
		if err := r.Register(reg.v, reg.priority); err != nil {
			return nil, err
		}
	}
	return r, nil
}
