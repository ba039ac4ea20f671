package registry

import (
	"fmt"
	"sync"

	"github.com/retaildemo/feedsync/games"
	"github.com/retaildemo/feedsync/pkg/models"
)

// GameRegistry manages the configured games in registration order
type GameRegistry struct {
	games map[string]models.GameConfig
	order []string
	mu    sync.RWMutex
}

// NewGameRegistry creates a new game registry
func NewGameRegistry() *GameRegistry {
	return &GameRegistry{
		games: make(map[string]models.GameConfig),
	}
}

// FromCatalogue registers every game of a loaded catalogue
func FromCatalogue(cat *games.Catalogue) (*GameRegistry, error) {
	r := NewGameRegistry()
	for _, g := range cat.Games {
		if err := r.Register(g); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a game to the registry
func (r *GameRegistry) Register(game models.GameConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if game.TypeName == "" {
		return fmt.Errorf("game type name is required")
	}
	if game.DurationSeconds <= 0 {
		return fmt.Errorf("game %s: duration must be positive", game.TypeName)
	}
	if _, exists := r.games[game.TypeName]; exists {
		return fmt.Errorf("game %s is already registered", game.TypeName)
	}

	r.games[game.TypeName] = game
	r.order = append(r.order, game.TypeName)
	return nil
}

// Get retrieves a game by type name
func (r *GameRegistry) Get(typeName string) (models.GameConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	game, exists := r.games[typeName]
	return game, exists
}

// GetAll returns all registered games
func (r *GameRegistry) GetAll() []models.GameConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.GameConfig, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.games[name])
	}
	return out
}

// Enabled returns the games that take part in auto-sync
func (r *GameRegistry) Enabled() []models.GameConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.GameConfig
	for _, name := range r.order {
		if g := r.games[name]; g.Enabled {
			out = append(out, g)
		}
	}
	return out
}

// Count returns the number of registered games
func (r *GameRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.games)
}
