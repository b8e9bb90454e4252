package store

// Cache is the content-hash view of the artifact table. Store and Load key
// on hash and kind only; rows written through a Cache carry its language.
type Cache struct {
	store    *Store
	language string
}

// Cache returns a Cache writing artifacts for language.
func (s *Store) Cache(language string) *Cache {
	return &Cache{store: s, language: language}
}

// Store caches payload under (hash, kind).
func (c *Cache) Store(hash, kind string, payload []byte) error {
	return c.store.PutArtifact(&Artifact{Hash: hash, Kind: kind, Language: c.language, Payload: payload})
}

// Load returns the payload cached under (hash, kind) in any language. ok is
// false when nothing is cached.
func (c *Cache) Load(hash, kind string) ([]byte, bool, error) {
	a, err := c.store.LatestArtifact(hash, kind)
	if err != nil || a == nil {
		return nil, false, err
	}
	return a.Payload, true, nil
}
