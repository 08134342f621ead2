package domain

import "context"

// LinkResolver fetches the content behind a content-addressed link such as
// "/ipfs/Qm...". Implementations map missing content to ErrNotFound.
type LinkResolver interface {
	ResolveLink(ctx context.Context, link string) ([]byte, error)
}
