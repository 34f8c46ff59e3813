// Package classifier labels a hand pose by matching it against recorded
// sign templates.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ayusman/signbridge/internal/detector"
	"github.com/ayusman/signbridge/internal/store"
)

// DefaultTolerance is the largest summed point distance accepted as a match.
const DefaultTolerance = 2.0

var (
	// ErrNoTemplates is returned when no templates are loaded.
	ErrNoTemplates = errors.New("no sign templates loaded")
	// ErrLowConfidence is returned when no template is within tolerance.
	ErrLowConfidence = errors.New("low confidence")
)

// Template is a normalized hand pose with its label.
type Template struct {
	ID     string
	Label  string
	Points []detector.Point3D
}

// Match is a template within tolerance of the input.
type Match struct {
	TemplateID string
	Label      string
	Score      float64 // 1/(1+distance), higher is better
	Distance   float64
}

// TemplateSource lists stored sign templates.
type TemplateSource interface {
	List() ([]*store.Sign, error)
}

// Classifier matches hand poses against sign templates. It is safe for
// concurrent use.
type Classifier struct {
	mu        sync.RWMutex
	templates []Template
	tolerance float64
}

// New creates an empty Classifier. A non-positive tolerance uses
// DefaultTolerance.
func New(tolerance float64) *Classifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Classifier{tolerance: tolerance}
}

// Tolerance returns the match tolerance.
func (c *Classifier) Tolerance() float64 {
	return c.tolerance
}

// Add registers a template from a flattened landmark vector.
func (c *Classifier) Add(id, label string, vector []float64) error {
	t, err := newTemplate(id, label, vector)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = append(c.templates, t)
	return nil
}

// Remove drops the template with the given ID.
func (c *Classifier) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range c.templates {
		if t.ID == id {
			c.templates = append(c.templates[:i], c.templates[i+1:]...)
			return
		}
	}
}

// Len returns the number of loaded templates.
func (c *Classifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Load replaces all templates with those in src. Signs with malformed
// landmarks are skipped and counted in the returned error.
func (c *Classifier) Load(src TemplateSource) error {
	signs, err := src.List()
	if err != nil {
		return fmt.Errorf("failed to list signs: %w", err)
	}

	templates := make([]Template, 0, len(signs))
	var skipped []string
	for _, sg := range signs {
		t, err := newTemplate(sg.ID, sg.Label, sg.Landmarks)
		if err != nil {
			skipped = append(skipped, sg.ID)
			continue
		}
		templates = append(templates, t)
	}

	c.mu.Lock()
	c.templates = templates
	c.mu.Unlock()

	if len(skipped) > 0 {
		return fmt.Errorf("skipped %d malformed signs: %v", len(skipped), skipped)
	}
	return nil
}

// Match returns every template within tolerance of the vector, best first.
func (c *Classifier) Match(vector []float64) ([]Match, error) {
	hand, err := detector.FromVector(vector)
	if err != nil {
		return nil, err
	}
	input := hand.Normalize().Points

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.templates) == 0 {
		return nil, ErrNoTemplates
	}

	var matches []Match
	for _, t := range c.templates {
		distance := euclideanDistance(input, t.Points)
		if distance > c.tolerance {
			continue
		}
		matches = append(matches, Match{
			TemplateID: t.ID,
			Label:      t.Label,
			Score:      1.0 / (1.0 + distance),
			Distance:   distance,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches, nil
}

// Predict returns the label of the closest template.
func (c *Classifier) Predict(vector []float64) (string, error) {
	matches, err := c.Match(vector)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", ErrLowConfidence
	}
	return matches[0].Label, nil
}

func newTemplate(id, label string, vector []float64) (Template, error) {
	hand, err := detector.FromVector(vector)
	if err != nil {
		return Template{}, fmt.Errorf("template %s: %w", id, err)
	}
	return Template{ID: id, Label: label, Points: hand.Normalize().Points}, nil
}

// euclideanDistance sums the distances between corresponding points.
func euclideanDistance(a, b []detector.Point3D) float64 {
	n := min(len(a), len(b))

	var total float64
	for i := 0; i < n; i++ {
		dx := a[i].X - b[i].X
		dy := a[i].Y - b[i].Y
		dz := a[i].Z - b[i].Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return total
}
