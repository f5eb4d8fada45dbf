// Package all registers every store backend numcaptcha ships with. Import it
// for side effects wherever policy files are validated.
package all

import (
	_ "github.com/TecharoHQ/numcaptcha/lib/store/bbolt"
	_ "github.com/TecharoHQ/numcaptcha/lib/store/memory"
	_ "github.com/TecharoHQ/numcaptcha/lib/store/valkey"
)
