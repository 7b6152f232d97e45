package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"upkeep-backend/internal/auth"
	"upkeep-backend/internal/database"
	"upkeep-backend/pkg/api"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// validKind accepts the location kind enum; kind is optional, so empty
// passes.
func validKind(kind string) bool {
	switch kind {
	case "", database.KindRoom, database.KindOutdoor, database.KindSystem, database.KindAppliance:
		return true
	}
	return false
}

func (s *BackendService) locationNameInUse(r *http.Request, userId uuid.UUID, name string, exclude uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(r.Context()).Model(&database.Location{}).
		Where("user_id = ? AND deleted = ? AND name = ? AND id != ?", userId, false, name, exclude).
		Count(&count).Error
	if err != nil {
		slog.Error("error checking location name", "error", err)
		return false, CodedErrorf(http.StatusInternalServerError, "error checking location name")
	}
	return count > 0, nil
}

func (s *BackendService) ListLocations(r *http.Request) (any, error) {
	userId := auth.UserId(r.Context())

	var locations []database.Location
	err := s.db.WithContext(r.Context()).
		Where("user_id = ? AND deleted = ?", userId, false).
		Order("creation_time ASC").
		Find(&locations).Error
	if err != nil {
		slog.Error("error listing locations", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving locations")
	}

	type countRow struct {
		LocationId uuid.UUID
		Count      int
	}
	var counts []countRow
	err = s.db.WithContext(r.Context()).Model(&database.Task{}).
		Select("location_id, count(*) as count").
		Where("user_id = ? AND deleted = ? AND location_id IS NOT NULL", userId, false).
		Group("location_id").
		Scan(&counts).Error
	if err != nil {
		slog.Error("error counting tasks per location", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving locations")
	}

	countByLocation := make(map[uuid.UUID]int, len(counts))
	for _, row := range counts {
		countByLocation[row.LocationId] = row.Count
	}

	out := make([]api.Location, 0, len(locations))
	for _, location := range locations {
		out = append(out, toApiLocation(location, countByLocation[location.Id]))
	}
	return out, nil
}

func (s *BackendService) CreateLocation(r *http.Request) (any, error) {
	req, err := ParseRequest[api.CreateLocationRequest](r)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if !validKind(req.Kind) {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid kind '%s'", req.Kind)
	}

	userId := auth.UserId(r.Context())

	inUse, err := s.locationNameInUse(r, userId, name, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if inUse {
		return nil, CodedErrorf(http.StatusConflict, "location named '%s' already exists", name)
	}

	location := database.Location{
		Id:           uuid.New(),
		UserId:       userId,
		Name:         name,
		Kind:         req.Kind,
		Icon:         req.Icon,
		CreationTime: time.Now().UTC(),
	}

	if err := s.db.WithContext(r.Context()).Create(&location).Error; err != nil {
		slog.Error("error creating location", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create location")
	}

	slog.Info("created location", "location_id", location.Id, "user_id", userId)
	return api.CreateLocationResponse{LocationId: location.Id}, nil
}

func (s *BackendService) getOwnedLocation(r *http.Request, locationId uuid.UUID) (database.Location, error) {
	var location database.Location
	err := s.db.WithContext(r.Context()).
		First(&location, "id = ? AND user_id = ? AND deleted = ?", locationId, auth.UserId(r.Context()), false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return location, CodedErrorf(http.StatusNotFound, "location not found")
		}
		slog.Error("error getting location", "location_id", locationId, "error", err)
		return location, CodedErrorf(http.StatusInternalServerError, "error retrieving location record")
	}
	return location, nil
}

func (s *BackendService) locationTaskCount(r *http.Request, locationId uuid.UUID) (int, error) {
	var count int64
	err := s.db.WithContext(r.Context()).Model(&database.Task{}).
		Where("location_id = ? AND deleted = ?", locationId, false).
		Count(&count).Error
	if err != nil {
		slog.Error("error counting location tasks", "location_id", locationId, "error", err)
		return 0, CodedErrorf(http.StatusInternalServerError, "error retrieving location record")
	}
	return int(count), nil
}

func (s *BackendService) GetLocation(r *http.Request) (any, error) {
	locationId, err := URLParamUUID(r, "location_id")
	if err != nil {
		return nil, err
	}

	location, err := s.getOwnedLocation(r, locationId)
	if err != nil {
		return nil, err
	}

	count, err := s.locationTaskCount(r, locationId)
	if err != nil {
		return nil, err
	}

	return toApiLocation(location, count), nil
}

func (s *BackendService) UpdateLocation(r *http.Request) (any, error) {
	locationId, err := URLParamUUID(r, "location_id")
	if err != nil {
		return nil, err
	}

	req, err := ParseRequest[api.UpdateLocationRequest](r)
	if err != nil {
		return nil, err
	}

	location, err := s.getOwnedLocation(r, locationId)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := validateName(name); err != nil {
			return nil, err
		}
		inUse, err := s.locationNameInUse(r, location.UserId, name, locationId)
		if err != nil {
			return nil, err
		}
		if inUse {
			return nil, CodedErrorf(http.StatusConflict, "location named '%s' already exists", name)
		}
		updates["name"] = name
	}
	if req.Kind != nil {
		if !validKind(*req.Kind) {
			return nil, CodedErrorf(http.StatusUnprocessableEntity, "invalid kind '%s'", *req.Kind)
		}
		updates["kind"] = *req.Kind
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(r.Context()).Model(&location).Updates(updates).Error; err != nil {
			slog.Error("error updating location", "location_id", locationId, "error", err)
			return nil, CodedErrorf(http.StatusInternalServerError, "failed to update location")
		}
	}

	location, err = s.getOwnedLocation(r, locationId)
	if err != nil {
		return nil, err
	}
	count, err := s.locationTaskCount(r, locationId)
	if err != nil {
		return nil, err
	}
	return toApiLocation(location, count), nil
}

// DeleteLocation soft deletes the location and detaches its tasks. The
// tasks survive without a location rather than being cascaded away.
func (s *BackendService) DeleteLocation(r *http.Request) (any, error) {
	locationId, err := URLParamUUID(r, "location_id")
	if err != nil {
		return nil, err
	}

	location, err := s.getOwnedLocation(r, locationId)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(r.Context()).Transaction(func(txn *gorm.DB) error {
		if err := txn.Model(&database.Task{}).
			Where("location_id = ?", locationId).
			Updates(map[string]any{"location_id": nil, "update_time": time.Now().UTC()}).Error; err != nil {
			return err
		}
		return txn.Model(&location).Update("deleted", true).Error
	})
	if err != nil {
		slog.Error("error deleting location", "location_id", locationId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to delete location")
	}

	return nil, nil
}
