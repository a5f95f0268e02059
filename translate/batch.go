package translate

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Item is one translated unit. Index is its position in the unit list and
// is what the box synthesizer pairs on.
type Item struct {
	Index      int    `json:"index"`
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// Batch translates the units of a document concurrently.
type Batch struct {
	translator  Translator
	concurrency int
}

// NewBatch creates a Batch running at most concurrency translations at once.
func NewBatch(translator Translator, concurrency int) *Batch {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Batch{translator: translator, concurrency: concurrency}
}

// TranslateAll returns one item per unit, in unit order. Units without a
// letter or digit are copied through, and a unit whose translation fails
// keeps its original text. Only context cancellation fails the batch.
func (b *Batch) TranslateAll(ctx context.Context, units []string, source, target string) ([]Item, error) {
	items := make([]Item, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, unit := range units {
		items[i] = Item{Index: i, Original: unit, Translated: unit}
		if !Translatable(unit) {
			continue
		}

		g.Go(func() error {
			translated, err := b.translator.Translate(gctx, Normalize(unit), source, target)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.WithError(err).WithFields(logrus.Fields{
					"index":  i,
					"source": source,
					"target": target,
				}).Warn("Translation failed, keeping original text")
				return nil
			}
			items[i].Translated = translated
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// Texts returns the translated texts in index order.
func Texts(items []Item) []string {
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Translated
	}
	return texts
}
