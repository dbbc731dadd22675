package entity

// StringCache is a reference counted string pool shared by the entities of one book.
// Entity setters route user strings through Replace and release them when the
// entity is freed, so the pool only holds strings still in use.
type StringCache struct {
	refs map[string]int
}

// NewStringCache creates an empty cache.
func NewStringCache() *StringCache {
	return &StringCache{refs: make(map[string]int)}
}

// Intern adds a reference to s. The empty string is never cached.
func (c *StringCache) Intern(s string) string {
	if s == "" {
		return s
	}
	c.refs[s]++
	return s
}

// Release drops one reference to s and evicts it once unused.
func (c *StringCache) Release(s string) {
	if s == "" {
		return
	}
	n, ok := c.refs[s]
	if !ok {
		return
	}
	if n <= 1 {
		delete(c.refs, s)
		return
	}
	c.refs[s] = n - 1
}

// Replace releases old and interns s.
func (c *StringCache) Replace(old, s string) string {
	c.Release(old)
	return c.Intern(s)
}

// Refs reports how many references s currently has.
func (c *StringCache) Refs(s string) int {
	return c.refs[s]
}

// Len returns the number of distinct cached strings.
func (c *StringCache) Len() int {
	return len(c.refs)
}
