package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/foliarr/foliarr/pkg/activities"
	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/fileutils"
	"github.com/foliarr/foliarr/pkg/fuzzy"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/foliarr/foliarr/pkg/titles"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// Reimport recovers files placed outside the pipeline: it walks the media
// roots (plus the optional ingest root), fuzzy-matches candidate leaf names
// against known book names, and claims the best match above the threshold
// with a synthetic imported activity. Blocked books never match.
type Reimport struct {
	db              *bun.DB
	configService   *config.Service
	activityService *activities.Service
}

func NewReimport(db *bun.DB, configService *config.Service, activityService *activities.Service) *Reimport {
	return &Reimport{db: db, configService: configService, activityService: activityService}
}

func (r *Reimport) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	cfg := r.configService.UserConfig()

	var list []*models.Book
	err := r.db.
		NewSelect().
		Model(&list).
		Where("b.blocked = ?", false).
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(list) == 0 {
		return nil
	}

	for _, audio := range []bool{true, false} {
		for _, candidate := range r.collectCandidates(ctx, &cfg, audio) {
			if err := r.match(ctx, &cfg, list, candidate, audio); err != nil {
				log.Err(err).Error("reimport candidate", logger.Data{
					"path":  candidate,
					"audio": audio,
				})
			}
		}
	}
	return nil
}

// collectCandidates returns directories holding audio files, or book files,
// under the slot's media root and the ingest root. Walk errors are logged
// and the rest of the tree is still visited.
func (r *Reimport) collectCandidates(ctx context.Context, cfg *config.UserConfig, audio bool) []string {
	log := logger.FromContext(ctx)

	roots := []string{cfg.BookPath}
	if audio {
		roots = []string{cfg.AudioPath}
	}
	if cfg.IngestPath != "" {
		roots = append(roots, cfg.IngestPath)
	}

	var candidates []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
			if err != nil {
				log.Err(err).Error("walk media root", logger.Data{"path": path})
				return nil
			}
			if path == root || strings.HasPrefix(entry.Name(), ".") {
				return nil
			}
			if audio {
				if !entry.IsDir() {
					return nil
				}
				has, herr := fileutils.HasAnyExtension(path, cfg.AudioExtensionsRating)
				if herr == nil && has {
					candidates = append(candidates, path)
				}
				return nil
			}
			if entry.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			for _, allowed := range cfg.BookExtensions {
				if ext == allowed {
					candidates = append(candidates, path)
					break
				}
			}
			return nil
		})
		if err != nil {
			log.Err(err).Error("walk media root", logger.Data{"root": root})
		}
	}
	return candidates
}

func (r *Reimport) match(ctx context.Context, cfg *config.UserConfig, list []*models.Book, candidate string, audio bool) error {
	log := logger.FromContext(ctx)

	leaf := filepath.Base(candidate)
	if !audio {
		leaf = strings.TrimSuffix(leaf, filepath.Ext(leaf))
	}
	// Directory names often carry a "Band 3 -" style ordinal that the book
	// name does not.
	needle := titles.StripPos(leaf)

	best := -1
	bestScore := -1
	for i, book := range list {
		score := fuzzy.NormalizedScore(needle, book.Name)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 || bestScore <= cfg.ReimportMatchThreshold {
		return nil
	}

	book := list[best]
	if loc := book.Loc(audio); loc != nil && filepath.Clean(*loc) == filepath.Clean(candidate) {
		return nil
	}

	log.Info("reimport match", logger.Data{
		"book_key": book.Key,
		"name":     book.Name,
		"path":     candidate,
		"score":    bestScore,
		"audio":    audio,
	})

	if _, err := r.activityService.OverwriteSlot(ctx, activities.Slot{BookKey: book.Key, Audio: audio}); err != nil {
		return err
	}

	synthetic := &models.Activity{
		ReleaseTitle: leaf,
		BookKey:      book.Key,
		Audio:        audio,
		Status:       models.ActivityStatusImported,
	}
	if err := r.activityService.CreateActivity(ctx, synthetic); err != nil {
		return err
	}

	column := "book_loc"
	if audio {
		column = "audio_loc"
	}
	book.SetLoc(audio, &candidate)
	book.UpdatedAt = time.Now()
	_, err := r.db.
		NewUpdate().
		Model(book).
		Column(column, "updated_at").
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}
