package envelope

// Builder constructs Response envelopes using a fluent API.
type Builder struct {
	resp *Response
}

// New creates a new envelope builder.
func New() *Builder {
	return &Builder{
		resp: &Response{
			SchemaVersion: CurrentSchemaVersion,
		},
	}
}

// Data sets the tool-specific payload.
func (b *Builder) Data(data interface{}) *Builder {
	b.resp.Data = data
	return b
}

func (b *Builder) meta() *Meta {
	if b.resp.Meta == nil {
		b.resp.Meta = &Meta{}
	}
	return b.resp.Meta
}

// Backend records the backend that produced the payload and sets the
// confidence tier from it. Repeated calls add backends; the tier is taken
// from the first.
func (b *Builder) Backend(id string) *Builder {
	if id == "" {
		return b
	}
	m := b.meta()
	if m.Provenance == nil {
		m.Provenance = &Provenance{}
		m.Confidence = &Confidence{Tier: TierForBackend(id)}
	}
	for _, existing := range m.Provenance.Backends {
		if existing == id {
			return b
		}
	}
	m.Provenance.Backends = append(m.Provenance.Backends, id)
	return b
}

// Downgrade lowers the confidence tier by one step and records why.
func (b *Builder) Downgrade(reason string) *Builder {
	m := b.meta()
	if m.Confidence == nil {
		m.Confidence = &Confidence{Tier: TierLow}
	}
	switch m.Confidence.Tier {
	case TierHigh:
		m.Confidence.Tier = TierMedium
	case TierMedium:
		m.Confidence.Tier = TierLow
	}
	m.Confidence.Reasons = append(m.Confidence.Reasons, reason)
	return b
}

// WithTruncation adds truncation metadata.
func (b *Builder) WithTruncation(truncated bool, shown, total int, reason string) *Builder {
	if !truncated {
		return b
	}
	b.meta().Truncation = &Truncation{
		IsTruncated: true,
		Shown:       shown,
		Total:       total,
		Reason:      reason,
	}
	return b
}

// SuggestCall adds a recommended follow-up call.
func (b *Builder) SuggestCall(tool string, params map[string]interface{}, reason string) *Builder {
	b.resp.SuggestedNextCalls = append(b.resp.SuggestedNextCalls, SuggestedCall{
		Tool:   tool,
		Params: params,
		Reason: reason,
	})
	return b
}

// Warning adds a warning message.
func (b *Builder) Warning(msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Message: msg})
	return b
}

// WarningWithCode adds a warning with a code.
func (b *Builder) WarningWithCode(code, msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: code, Message: msg})
	return b
}

// Error sets the error field.
func (b *Builder) Error(err error) *Builder {
	if err != nil {
		msg := err.Error()
		b.resp.Error = &msg
	}
	return b
}

// ErrorMessage sets the error field from a plain message.
func (b *Builder) ErrorMessage(msg string) *Builder {
	b.resp.Error = &msg
	return b
}

// Build returns the completed response envelope.
func (b *Builder) Build() *Response {
	return b.resp
}

// Operational creates a simple envelope for tools that report local state
// and need no provenance.
func Operational(data interface{}) *Response {
	return &Response{
		SchemaVersion: CurrentSchemaVersion,
		Data:          data,
	}
}
