package cache

type hitResult[T any] struct {
	data    T
	valid   bool
	claimed bool
}

// Cache lets one caller claim a missing key and fill it while other callers wait
type Cache[T any] interface {
	name() string
	getOrClaim(key string) hitResult[T]
	set(key string, data T)
	delete(key string)
	wait()
}
