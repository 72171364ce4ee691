package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pacheco20222/DogMatch-backend-sub000/internal/db"
)

// DogRepository is the participant lookup: it resolves dog profiles to
// their owning accounts. Profile CRUD itself lives outside this service.
type DogRepository struct {
	db *gorm.DB
}

// NewDogRepository creates a new repository bound to the given DB connection.
func NewDogRepository(database *gorm.DB) *DogRepository {
	return &DogRepository{db: database}
}

// FindByID fetches one dog profile.
func (r *DogRepository) FindByID(ctx context.Context, id uint64) (*db.Dog, error) {
	var dog db.Dog
	if err := r.db.WithContext(ctx).First(&dog, id).Error; err != nil {
		return nil, err
	}
	return &dog, nil
}

// OwnerOf resolves a dog to its owning account identity.
func (r *DogRepository) OwnerOf(ctx context.Context, dogID uint64) (uint64, error) {
	dog, err := r.FindByID(ctx, dogID)
	if err != nil {
		return 0, err
	}
	return dog.OwnerID, nil
}

// DogOwnedBy returns which of the two pair dogs belongs to ownerID, or 0.
// Feeds the "which side of the match is the caller" resolution in dispatch.
func (r *DogRepository) DogOwnedBy(ctx context.Context, ownerID uint64, dogA, dogB uint64) (uint64, error) {
	var dogs []db.Dog
	err := r.db.WithContext(ctx).
		Where("id IN ? AND owner_id = ?", []uint64{dogA, dogB}, ownerID).
		Find(&dogs).Error
	if err != nil {
		return 0, err
	}
	if len(dogs) != 1 {
		return 0, nil
	}
	return dogs[0].ID, nil
}

// OwnedBy checks that a specific dog belongs to ownerID.
func (r *DogRepository) OwnedBy(ctx context.Context, dogID, ownerID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Dog{}).
		Where("id = ? AND owner_id = ?", dogID, ownerID).
		Count(&count).Error
	return count > 0, err
}
