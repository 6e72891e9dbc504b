package parser

// MaxInternPoolSize limits the intern pool to prevent unbounded memory growth.
// Columns with more distinct values than this are mostly unique anyway.
const MaxInternPoolSize = 50000

// Interner deduplicates repeated cell text within one table so that
// categorical columns share a single copy of each distinct value.
// It is not safe for concurrent use.
type Interner struct {
	pool map[string]string
	max  int
}

// NewInterner creates an interner that stores at most limit distinct strings.
// A non-positive limit selects MaxInternPoolSize.
func NewInterner(limit int) *Interner {
	if limit <= 0 {
		limit = MaxInternPoolSize
	}
	return &Interner{
		pool: make(map[string]string, 256),
		max:  limit,
	}
}

// Intern returns the canonical copy of s. Once the pool is full, unseen
// strings are returned as is.
func (in *Interner) Intern(s string) string {
	if pooled, ok := in.pool[s]; ok {
		return pooled
	}
	if len(in.pool) >= in.max {
		return s
	}
	in.pool[s] = s
	return s
}

// Len returns the number of distinct strings in the pool.
func (in *Interner) Len() int {
	return len(in.pool)
}
