// Package ordernumber generates human-typeable order numbers: ML-<base36 millis>-<4 chars>.
package ordernumber

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	prefix       = "ML"
	suffixLength = 4
	alphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

type Generator func() string

// New returns an order number for the current time.
func New() string {
	return At(time.Now())
}

func At(t time.Time) string {
	stamp := strconv.FormatInt(t.UnixMilli(), 36)
	return strings.ToUpper(prefix + "-" + stamp + "-" + randomSuffix())
}

func randomSuffix() string {
	var b strings.Builder
	limit := big.NewInt(int64(len(alphabet)))
	for i := 0; i < suffixLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			// crypto/rand only fails when the OS source is broken
			panic(err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String()
}
