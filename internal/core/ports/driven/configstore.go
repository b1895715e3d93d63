package driven

// ConfigStore is a dotted-key view of the settings file ("paths.data",
// "pipeline.chunker.overlap"). Typed getters return the zero value for a
// missing key or one that cannot be converted.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat(key string) float64

	// Set stores value and persists it before returning.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path is the backing file, shown by 'kbrag settings'.
	Path() string
}
