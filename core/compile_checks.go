package core

// Compile-time checks that default implementations satisfy their contracts.
var (
	_ MetricsRecorder = NopMetricsRecorder{}
	_ SecretProvider  = StaticSecretProvider{}
)
