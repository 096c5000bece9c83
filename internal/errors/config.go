//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

// ConfigError represents a manifest loading or parsing error.
type ConfigError struct {
	Base Error `json:"error"`

	// File is the path to the manifest file.
	File string `json:"file,omitempty"`

	// Line is the line number where the error occurred.
	Line int `json:"line,omitempty"`

	// Column is the column number where the error occurred.
	Column int `json:"column,omitempty"`

	// Context contains surrounding lines of the manifest for display.
	Context string `json:"context,omitempty"`
}

// NewConfigError creates a ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		Base: Error{
			Category: CategoryConfig,
			Code:     CodeConfigParse,
			Message:  message,
			Cause:    cause,
		},
	}
}

// NewConfigErrorAt creates a ConfigError with file location information.
func NewConfigErrorAt(file string, line, column int, message string, cause error) *ConfigError {
	return &ConfigError{
		Base: Error{
			Category: CategoryConfig,
			Code:     CodeConfigParse,
			Message:  message,
			Cause:    cause,
		},
		File:   file,
		Line:   line,
		Column: column,
	}
}

// NewConfigValidationError creates a ConfigError for a field that parsed but
// failed validation (e.g. an unknown merge-strategy suffix or an operation
// kind with no registered driver).
func NewConfigValidationError(file, message string) *ConfigError {
	return &ConfigError{
		Base: Error{
			Category: CategoryConfig,
			Code:     CodeConfigValidation,
			Message:  message,
		},
		File: file,
	}
}

// WithContext sets the surrounding manifest context.
func (e *ConfigError) WithContext(context string) *ConfigError {
	e.Context = context
	return e
}

// WithFile sets the file path.
func (e *ConfigError) WithFile(file string) *ConfigError {
	e.File = file
	return e
}

// WithLocation sets the line and column.
func (e *ConfigError) WithLocation(line, column int) *ConfigError {
	e.Line = line
	e.Column = column
	return e
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Base.Cause
}

// Is reports whether the target error matches this error by code.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	return e.Base.Code == t.Base.Code
}

// TrustError represents an operation refused because the work directory
// has not been trusted, or was explicitly untrusted.
type TrustError struct {
	Base Error `json:"error"`

	// WorkDir is the directory that is not trusted.
	WorkDir string `json:"work_dir,omitempty"`

	// ConfigHash is the fingerprint of the manifest content that would
	// need to be (re-)trusted.
	ConfigHash string `json:"config_hash,omitempty"`
}

// NewTrustError creates a TrustError.
func NewTrustError(workDir string) *TrustError {
	return &TrustError{
		Base: Error{
			Category: CategoryTrust,
			Code:     CodeNotTrusted,
			Message:  "work directory is not trusted",
			Hint:     "Run 'omni config trust' after reviewing the manifest.",
		},
		WorkDir: workDir,
	}
}

// WithConfigHash sets the manifest fingerprint.
func (e *TrustError) WithConfigHash(hash string) *TrustError {
	e.ConfigHash = hash
	return e
}

// Error implements the error interface.
func (e *TrustError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the underlying error.
func (e *TrustError) Unwrap() error {
	return e.Base.Cause
}

// Is reports whether the target error matches this error by code.
func (e *TrustError) Is(target error) bool {
	t, ok := target.(*TrustError)
	if !ok {
		return false
	}
	return e.Base.Code == t.Base.Code
}
