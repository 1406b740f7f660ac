package client

import (
	"fmt"
	"path"
	"strings"
)

// resolve normalizes a user-supplied path against the client root. Relative
// paths are joined under the root; absolute paths are accepted as-is but
// must still fall under it. Escaping the root with .. segments is rejected.
// Pure function, no I/O.
func (c *Client) resolve(p string) (string, error) {
	var joined string
	if strings.HasPrefix(p, "/") {
		joined = path.Clean(p)
	} else {
		joined = path.Join(c.root, p)
	}

	if !underRoot(joined, c.root) {
		return "", fmt.Errorf("%w: %q resolves to %q, root is %q", ErrInvalidPath, p, joined, c.root)
	}
	return joined, nil
}

func underRoot(p, root string) bool {
	if root == "/" {
		return strings.HasPrefix(p, "/")
	}
	return p == root || strings.HasPrefix(p, root+"/")
}
