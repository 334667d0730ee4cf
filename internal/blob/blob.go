// Package blob abstracts the binary object store holding uploaded report
// images and audio. The core only ever turns an opaque blob reference
// into a fetchable URL.
package blob

import "context"

// Resolver maps a blob reference to a URL. ok=false means the reference
// no longer resolves (deleted or never existed); that is not an error.
type Resolver interface {
	ResolveURL(ctx context.Context, ref string) (url string, ok bool, err error)
}
