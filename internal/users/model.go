package users

import (
	"time"

	"github.com/uptrace/bun"
)

// User is the persisted account record. Password holds the KMS ciphertext,
// never the plaintext.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u" json:"-" msgpack:"-"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id" msgpack:"id"`
	Username  string    `bun:"username,notnull,unique" json:"username" msgpack:"username"`
	Email     string    `bun:"email,notnull,unique" json:"email" msgpack:"email"`
	Password  string    `bun:"password,notnull" json:"-" msgpack:"password"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at" msgpack:"created_at"`
}
