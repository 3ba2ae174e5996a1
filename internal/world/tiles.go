package world

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // tile servers return JPEG
	_ "image/png"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"drone-city-sim/internal/geom"
)

// PlaceholderColor is used for tiles that never loaded.
var PlaceholderColor = Hex(0x3d6b35)

// GroundTile is one square of the ground grid with its slippy-map address.
type GroundTile struct {
	Center geom.Vec3
	Size   float64
	TileX  int
	TileY  int
	Zoom   int
	Color  color.RGBA
	Loaded bool
}

// URL is the imagery URL of the tile.
func (t GroundTile) URL() string { return TileURL(t.TileX, t.TileY, t.Zoom) }

// LatLonToTile converts WGS84 degrees to slippy-map tile indices.
func LatLonToTile(lat, lon float64, zoom int) (x, y int) {
	n := math.Exp2(float64(zoom))
	x = int(math.Floor((lon + 180) / 360 * n))
	latRad := lat * math.Pi / 180
	y = int(math.Floor((1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n))
	return x, y
}

// TileURL addresses ESRI World Imagery.
func TileURL(x, y, z int) string {
	return fmt.Sprintf("https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/%d/%d/%d", z, y, x)
}

// newTileGrid lays tiles row by row so that tile row j increases toward +Z
// (south).
func newTileGrid(l Layout) []GroundTile {
	n := l.TilesPerSide
	if n <= 0 {
		return nil
	}
	size := l.WorldSize / float64(n)
	cx, cy := LatLonToTile(l.Origin.Lat, l.Origin.Lon, l.TileZoom)
	tiles := make([]GroundTile, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			tiles = append(tiles, GroundTile{
				Center: geom.Vec3{
					X: (float64(i) - float64(n)/2 + 0.5) * size,
					Z: (float64(j) - float64(n)/2 + 0.5) * size,
				},
				Size:  size,
				TileX: cx - n/2 + i,
				TileY: cy - n/2 + j,
				Zoom:  l.TileZoom,
				Color: PlaceholderColor,
			})
		}
	}
	return tiles
}

// TileLoader resolves a tile to the colour it is drawn with.
type TileLoader interface {
	LoadTile(ctx context.Context, t GroundTile) (color.RGBA, error)
}

// HTTPTileLoader fetches the tile image and averages it.
type HTTPTileLoader struct {
	Client *http.Client
}

func NewHTTPTileLoader(timeout time.Duration) *HTTPTileLoader {
	return &HTTPTileLoader{Client: &http.Client{Timeout: timeout}}
}

func (l *HTTPTileLoader) LoadTile(ctx context.Context, t GroundTile) (color.RGBA, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL(), nil)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("building tile request: %w", err)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("fetching tile %d,%d: %w", t.TileX, t.TileY, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return color.RGBA{}, fmt.Errorf("fetching tile %d,%d: status %s", t.TileX, t.TileY, resp.Status)
	}
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("decoding tile %d,%d: %w", t.TileX, t.TileY, err)
	}
	return AverageColor(img), nil
}

// AverageColor is the mean colour of img.
func AverageColor(img image.Image) color.RGBA {
	b := img.Bounds()
	var r, g, bl, n uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			r += uint64(cr >> 8)
			g += uint64(cg >> 8)
			bl += uint64(cb >> 8)
			n++
		}
	}
	if n == 0 {
		return PlaceholderColor
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(bl / n), A: 0xff}
}

// LoadTiles resolves every tile with at most parallel requests in flight.
// A failed tile keeps the placeholder colour; failures are logged and
// counted but never returned.
func (w *World) LoadTiles(ctx context.Context, loader TileLoader, parallel int, log zerolog.Logger) (failed int) {
	if loader == nil {
		return 0
	}
	colors := make([]color.RGBA, len(w.Tiles))
	errs := make([]error, len(w.Tiles))

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, t := range w.Tiles {
		g.Go(func() error {
			colors[i], errs[i] = loader.LoadTile(gctx, t)
			return nil
		})
	}
	_ = g.Wait()

	for i := range w.Tiles {
		if errs[i] != nil {
			failed++
			log.Warn().Err(errs[i]).
				Int("tile_x", w.Tiles[i].TileX).
				Int("tile_y", w.Tiles[i].TileY).
				Msg("tile load failed, using placeholder")
			w.Tiles[i].Color = PlaceholderColor
			continue
		}
		w.Tiles[i].Color = colors[i]
		w.Tiles[i].Loaded = true
	}
	return failed
}
