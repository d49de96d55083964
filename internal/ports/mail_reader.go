package ports

import (
	"io"
)

// MailReader converts a raw RFC 5322 message into the plain-text form the
// email scanner reads: "From:" and "Subject:" lines followed by the body.
type MailReader interface {
	ReadMessage(r io.Reader) (string, error)
}
