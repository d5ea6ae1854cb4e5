package types

// redactedPlaceholder replaces secret values in logs and serialized output.
const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString is a string type that prevents accidental logging or
// serialization of sensitive values such as connection URLs with embedded
// credentials. String() and MarshalJSON() return a redacted placeholder;
// call Unmask() where the raw value is genuinely needed (driver connect
// strings, Authorization headers).
type SecretString string

// String returns a redacted placeholder instead of the raw value. Invoked
// by fmt and by structured loggers through the fmt.Stringer interface.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string so config
// dumps and structured log entries never carry the secret.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value of the secret.
func (s SecretString) Unmask() string {
	return string(s)
}
