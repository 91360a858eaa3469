package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/fenilmodi00/country-currency-api/shared"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ArtifactRenderer regenerates the summary image after a refresh
type ArtifactRenderer interface {
	Render(countries []models.Country, refreshedAt time.Time) error
}

// ArtifactReader returns the bytes of the last rendered summary image
type ArtifactReader interface {
	ReadArtifact() ([]byte, error)
}

var (
	titleColor  = color.RGBA{R: 0x2c, G: 0x3e, B: 0x50, A: 0xff}
	headerColor = color.RGBA{R: 0x34, G: 0x49, B: 0x5e, A: 0xff}
	mutedColor  = color.RGBA{R: 0x7f, G: 0x8c, B: 0x8d, A: 0xff}
)

// SummaryArtifact renders the summary PNG into a directory and serves it back
type SummaryArtifact struct {
	config shared.ArtifactConfig

	titleFace  font.Face
	headerFace font.Face
	textFace   font.Face
	printer    *message.Printer

	// serializes renders so a reader never sees a half-replaced file
	mutex sync.Mutex
}

func NewSummaryArtifact(config shared.ArtifactConfig) (*SummaryArtifact, error) {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing bold font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing regular font: %w", err)
	}

	titleFace, err := newFace(bold, 32)
	if err != nil {
		return nil, err
	}
	headerFace, err := newFace(bold, 24)
	if err != nil {
		return nil, err
	}
	textFace, err := newFace(regular, 18)
	if err != nil {
		return nil, err
	}

	return &SummaryArtifact{
		config:     config,
		titleFace:  titleFace,
		headerFace: headerFace,
		textFace:   textFace,
		printer:    message.NewPrinter(language.English),
	}, nil
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %.0fpt font face: %w", size, err)
	}
	return face, nil
}

// Path returns the location of the rendered image
func (a *SummaryArtifact) Path() string {
	return filepath.Join(a.config.Directory, a.config.FileName)
}

// Render draws the summary for countries and atomically replaces the file
func (a *SummaryArtifact) Render(countries []models.Country, refreshedAt time.Time) error {
	img := a.draw(countries, refreshedAt)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return shared.NewServiceError(shared.ErrorCategoryProcessing, shared.CodeRenderFailure,
			fmt.Sprintf("encoding summary image: %v", err), "SummaryArtifact", "Render", err)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if err := writeFileAtomic(a.Path(), buf.Bytes()); err != nil {
		return shared.NewServiceError(shared.ErrorCategoryProcessing, shared.CodeRenderFailure,
			fmt.Sprintf("writing summary image: %v", err), "SummaryArtifact", "Render", err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "SummaryArtifact",
		"path":      a.Path(),
		"bytes":     buf.Len(),
	}).Info("Rendered summary image")

	return nil
}

// ReadArtifact returns the image bytes or a not-found error before the first render
func (a *SummaryArtifact) ReadArtifact() ([]byte, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	data, err := os.ReadFile(a.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, shared.NewNotFoundError("SummaryArtifact", "ReadArtifact", "Summary image not found")
	}
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryProcessing, shared.CodeRenderFailure, "SummaryArtifact", "ReadArtifact")
	}
	return data, nil
}

func (a *SummaryArtifact) draw(countries []models.Country, refreshedAt time.Time) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, a.config.Width, a.config.Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	a.text(img, a.titleFace, titleColor, 50, 30, "Country Statistics Summary")
	a.text(img, a.headerFace, headerColor, 50, 100, fmt.Sprintf("Total Countries: %d", len(countries)))
	a.text(img, a.textFace, mutedColor, 50, 140,
		"Last Refreshed: "+refreshedAt.UTC().Format("2006-01-02 15:04:05")+" UTC")
	a.text(img, a.headerFace, titleColor, 50, 200,
		fmt.Sprintf("Top %d Countries by Estimated GDP:", a.config.TopN))

	for i, country := range TopByGDP(countries, a.config.TopN) {
		line := fmt.Sprintf("%d. %s: %s", i+1, country.Name, a.formatUSD(*country.EstimatedGDP))
		a.text(img, a.textFace, headerColor, 70, 250+40*i, line)
	}

	return img
}

// text draws s with its top-left corner at (x, top)
func (a *SummaryArtifact) text(img draw.Image, face font.Face, c color.Color, x, top int, s string) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(top) + face.Metrics().Ascent},
	}
	drawer.DrawString(s)
}

func (a *SummaryArtifact) formatUSD(value float64) string {
	return a.printer.Sprintf("$%.2f", value)
}

// TopByGDP returns up to n countries with the highest estimated GDP,
// excluding records without one
func TopByGDP(countries []models.Country, n int) []models.Country {
	ranked := make([]models.Country, 0, len(countries))
	for _, country := range countries {
		if country.EstimatedGDP != nil {
			ranked = append(ranked, country)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].EstimatedGDP > *ranked[j].EstimatedGDP
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".summary-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}
