package device

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// PseudonymLength is the number of hex characters kept from the hash.
const PseudonymLength = 16

// Fingerprinter derives stable pseudonymous device identifiers from request
// characteristics. The fingerprint is best-effort: collisions across devices
// are possible and tolerated, and it is never a security credential.
type Fingerprinter struct {
	cache *cache.Cache
}

func NewFingerprinter() *Fingerprinter {
	// Entries expire so unique header/IP tuples do not accumulate without
	// bound; the pseudonym is recomputed from the same components on the
	// next request.
	return &Fingerprinter{
		cache: cache.New(24*time.Hour, time.Hour),
	}
}

// FromRequest returns the pseudonym for the device behind r. The same
// component tuple always hashes to the same pseudonym, so repeated requests
// from one device resolve to one identity. Missing headers fall back to
// placeholder components, lowering entropy but never failing.
func (f *Fingerprinter) FromRequest(r *http.Request) string {
	components := []string{
		orUnknown(r.UserAgent()),
		orUnknown(r.Header.Get("Accept-Language")),
		orUnknown(r.Header.Get("Sec-Ch-Ua-Platform")),
		orUnknown(r.Header.Get("Sec-Ch-Ua")),
		orUnknown(clientIP(r)),
	}
	key := strings.Join(components, "|")

	if v, ok := f.cache.Get(key); ok {
		return v.(string)
	}
	id := hashComponents(key)
	f.cache.Set(key, id, cache.DefaultExpiration)
	return id
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// clientIP prefers the first X-Forwarded-For hop so devices behind the same
// reverse proxy do not collapse into one pseudonym.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func hashComponents(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:PseudonymLength]
}

var (
	nodeOnce sync.Once
	nodeID   string
)

// NodeID returns this process's own pseudonym, used to mark the origin of
// replica writes. Computed once per process lifetime from host
// characteristics; a missing hostname degrades to the remaining components.
func NodeID() string {
	nodeOnce.Do(func() {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		components := []string{
			hostname,
			runtime.GOOS,
			runtime.GOARCH,
			strconv.Itoa(runtime.NumCPU()),
		}
		nodeID = hashComponents(strings.Join(components, "|"))
	})
	return nodeID
}
