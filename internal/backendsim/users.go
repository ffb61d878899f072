package backendsim

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/progress/jsdo/pkg/cryptox"
)

var errInvalidCredentials = errors.New("backendsim: invalid username or password")

// userDirectory holds Argon2id hashes of the configured users.
type userDirectory struct {
	hashes map[string]string
}

func newUserDirectory(users map[string]string) (*userDirectory, error) {
	d := &userDirectory{hashes: make(map[string]string, len(users))}
	for _, name := range slices.Sorted(maps.Keys(users)) {
		hash, err := cryptox.HashPassword(users[name])
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for %q: %w", name, err)
		}
		d.hashes[name] = hash
	}
	return d, nil
}

// verify checks username and password. Unknown users and wrong passwords
// return the same error.
func (d *userDirectory) verify(username, password string) error {
	hash, ok := d.hashes[username]
	if !ok || password == "" {
		return errInvalidCredentials
	}
	if err := cryptox.VerifyPassword(password, hash); err != nil {
		return errInvalidCredentials
	}
	return nil
}
