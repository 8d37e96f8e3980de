// Package options holds the functional-option types shared across the
// zcap package's exported entry points, grounded on the teacher's
// vc.ProcessorOpt / vc/options.ProcessorOpt pattern.
package options

// VerifyOptions configures VerifyCapability and BatchVerifyCapabilities.
// InvokeCapability, VerifyInvocation and DelegateCapability take no
// options and always verify with the defaults.
type VerifyOptions struct {
	MaxChainDepth int
}

// VerifyOpt mutates VerifyOptions.
type VerifyOpt func(*VerifyOptions)

// WithMaxChainDepth overrides the default chain-depth bound applied
// during recursive verification.
func WithMaxChainDepth(depth int) VerifyOpt {
	return func(o *VerifyOptions) {
		o.MaxChainDepth = depth
	}
}

// ParseOptions configures FromJSONLD and InvocationFromJSONLD.
type ParseOptions struct {
	SkipSchemaValidation bool
}

// ParseOpt mutates ParseOptions.
type ParseOpt func(*ParseOptions)

// WithSkipSchemaValidation disables the additive gojsonschema structural
// check, leaving only the field-by-field validation every parse already
// performs. The embedded schemas do not forbid additional properties,
// so extra fields are accepted with or without this option.
func WithSkipSchemaValidation() ParseOpt {
	return func(o *ParseOptions) {
		o.SkipSchemaValidation = true
	}
}
