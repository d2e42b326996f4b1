package ports

type CacheInvalidator interface {
	InvalidateAll()
}
