package common

// Keys of the persistent cache. The cache is an opaque key-value store; these
// are the only keys the client reads or writes.
const (
	// KeyToken holds the bearer access token.
	KeyToken = "token"
	// KeyAuthState holds the anti-CSRF nonce sent with the login redirect.
	KeyAuthState = "authState"
	// KeyPrevRoute holds the "return to this route" hint.
	KeyPrevRoute = "prevRoute"
	// KeyState holds the serialized state snapshot.
	KeyState = "state"

	// KeyCacheSalt and KeyCacheCheck are kept in clear text by an encrypted
	// cache: the key derivation salt and a digest of the derived key.
	KeyCacheSalt  = "cacheSalt"
	KeyCacheCheck = "cacheCheck"
)

// Attachment byte limits per file.
const (
	AttachmentOnlineByteLimit  = 50_000_000
	AttachmentOfflineByteLimit = 8_000_000
)

// AuthStateLength is the length of the login nonce.
const AuthStateLength = 20
