package tilefetch

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// ResourceResolver turns a dataset identifier into the concrete fetch
// target for a tile. Implementations must be pure: the same (id, dataset)
// pair always yields the same target.
type ResourceResolver interface {
	Resolve(id TileID, dataset string) string
}

// XYZResolver expands {x}, {y} and {z} placeholders in the dataset
// template. Coordinates are substituted verbatim, so a TMS TileID yields a
// TMS row in the target.
type XYZResolver struct{}

func (XYZResolver) Resolve(id TileID, dataset string) string {
	return strings.NewReplacer(
		"{x}", fmt.Sprintf("%d", id.X),
		"{y}", fmt.Sprintf("%d", id.Y),
		"{z}", fmt.Sprintf("%d", id.Z)).Replace(dataset)
}

// HashPrefixResolver expands tilezen-style S3 key templates. Besides the
// coordinate placeholders it substitutes {l} with the layer name and {h}
// with the first five hex digits of md5("z/x/y.zip"), which spreads keys
// across S3 partitions.
type HashPrefixResolver struct {
	Layer string
}

func (r HashPrefixResolver) Resolve(id TileID, dataset string) string {
	hash := md5.Sum([]byte(fmt.Sprintf("%d/%d/%d.zip", id.Z, id.X, id.Y)))
	hashHex := hex.EncodeToString(hash[:])

	return strings.NewReplacer(
		"{x}", fmt.Sprintf("%d", id.X),
		"{y}", fmt.Sprintf("%d", id.Y),
		"{z}", fmt.Sprintf("%d", id.Z),
		"{l}", r.Layer,
		"{h}", hashHex[:5]).Replace(dataset)
}
