package refx

// Reserved object keys. These never collide with domain member names; a
// schema declaring a member under one of these names is rejected at build time.
const (
	// KeyID declares the identifier under which the surrounding object is
	// registered in the reference table.
	KeyID = "$id"

	// KeyRef points at an identifier previously declared with KeyID. An
	// object carrying KeyRef has no other meaningful entries.
	KeyRef = "$ref"

	// KeyType names the concrete runtime type of the surrounding object for
	// polymorphic resolution, subject to the allow-list gate.
	KeyType = "$type"

	// StructTag is the struct tag inspected when building member descriptors.
	StructTag = "refx"
)

// Environment variable names
const (
	// EnvDynamicTyping toggles polymorphic type resolution ("true"/"false").
	// Dynamic typing is enabled by default; individual declared types still
	// have to be registered as dynamic bases before a type tag is honored.
	EnvDynamicTyping = "REFX_DYNAMIC_TYPING"

	// EnvReferenceTracking toggles identity-preserving reference tracking
	// ("true"/"false"). Enabled by default.
	EnvReferenceTracking = "REFX_REFERENCE_TRACKING"

	// EnvDisallowUnknownKeys enables the strict mode in which object keys
	// matching no member descriptor are an error instead of being ignored.
	EnvDisallowUnknownKeys = "REFX_DISALLOW_UNKNOWN_KEYS"

	// EnvAllowedTypes is a semicolon-separated list of type tags permitted for
	// dynamic resolution (tags themselves contain commas). Empty means every
	// registered type is permitted.
	EnvAllowedTypes = "REFX_ALLOWED_TYPES"

	// EnvAllowedModules is a comma-separated list of module names permitted
	// for dynamic resolution. Empty means every registered module is permitted.
	EnvAllowedModules = "REFX_ALLOWED_MODULES"
)
