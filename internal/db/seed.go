package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedBreeds = []string{
	"labrador", "beagle", "poodle", "dachshund", "corgi",
	"husky", "boxer", "terrier", "spaniel", "mutt",
}

// SeedTestData resets the database and populates it with demo owners, dogs
// and a spread of matches in every lifecycle state.
//
// Behavior:
//  1. Clears existing rows in messages, matches, dogs and owners.
//  2. Creates 12 owners with hashed passwords, one dog each.
//  3. Swipes dogs on each other: ~60% likes, every 4th forced mutual so the
//     demo data always contains established conversations.
//  4. Drops a greeting message into each established match.
//
// Compatible with both MySQL and SQLite (sequence reset is dialect-aware).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"messages", "matches", "dogs", "owners"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range []string{"matches", "dogs", "owners"} {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('matches', 'dogs', 'owners')")
	}

	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	var dogs []Dog
	for i := 1; i <= 12; i++ {
		owner := Owner{
			Username:     fmt.Sprintf("owner%d", i),
			Email:        fmt.Sprintf("owner%d@example.com", i),
			PasswordHash: string(hash),
			Active:       true,
		}
		if err := db.Create(&owner).Error; err != nil {
			return fmt.Errorf("failed to seed owner: %w", err)
		}

		dog := Dog{
			OwnerID: owner.ID,
			Name:    fmt.Sprintf("dog%d", i),
			Breed:   seedBreeds[r.Intn(len(seedBreeds))],
		}
		if err := db.Create(&dog).Error; err != nil {
			return fmt.Errorf("failed to seed dog: %w", err)
		}
		dogs = append(dogs, dog)
	}
	log.Printf("Seeded %d owners and dogs.", len(dogs))

	counter := 0
	for i := range dogs {
		for j := i + 1; j < len(dogs); j++ {
			if r.Intn(100) >= 50 {
				continue // these two never crossed paths
			}

			a, b := dogs[i], dogs[j]
			actionA, actionB := randomAction(r), randomAction(r)
			if counter%4 == 0 {
				actionA, actionB = ActionLike, ActionLike
			}
			counter++

			match := Match{
				DogAID:         a.ID,
				DogBID:         b.ID,
				InitiatorDogID: a.ID,
				DogAAction:     actionA,
				DogBAction:     actionB,
				Status:         seedStatus(actionA, actionB),
			}
			if match.Status == StatusMatched {
				now := time.Now()
				match.MatchedAt = &now
			}
			if err := db.Create(&match).Error; err != nil {
				return fmt.Errorf("failed to seed match: %w", err)
			}

			if match.Status == StatusMatched {
				msg := Message{
					ID:          fmt.Sprintf("seed-%d", match.ID),
					MatchID:     match.ID,
					SenderDogID: a.ID,
					Body:        fmt.Sprintf("Woof! %s wants to meet %s at the park", a.Name, b.Name),
					Type:        MessageTypeText,
				}
				if err := db.Create(&msg).Error; err != nil {
					return fmt.Errorf("failed to seed message: %w", err)
				}
				now := time.Now()
				db.Model(&Match{}).Where("id = ?", match.ID).
					Updates(map[string]interface{}{"message_count": 1, "last_message_at": &now})
			}
		}
	}

	return nil
}

func randomAction(r *rand.Rand) Action {
	switch {
	case r.Intn(100) < 55:
		return ActionLike
	case r.Intn(100) < 15:
		return ActionSuperLike
	case r.Intn(100) < 50:
		return ActionPass
	default:
		return ActionUndecided
	}
}

// seedStatus mirrors the ledger's derivation for pre-built rows:
// pending while either side is undecided, declined if anyone passed,
// matched otherwise.
func seedStatus(a, b Action) Status {
	if !a.Decided() || !b.Decided() {
		return StatusPending
	}
	if a == ActionPass || b == ActionPass {
		return StatusDeclined
	}
	return StatusMatched
}
