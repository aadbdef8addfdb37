package shader

// CompilerBuilderOption configures a Compiler created by NewWGSLCompiler.
type CompilerBuilderOption func(*wgslCompiler)

// WithSPIRV toggles SPIR-V output. When disabled, shaders are only pre-processed and parsed and
// backends consume the WGSL source directly.
//
// Parameters:
//   - enabled: whether to compile to SPIR-V
//
// Returns:
//   - CompilerBuilderOption: the option
func WithSPIRV(enabled bool) CompilerBuilderOption {
	return func(c *wgslCompiler) {
		c.spirv = enabled
	}
}
