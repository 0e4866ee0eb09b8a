package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/admission"
)

type admissionRepository struct {
	db *admissionTable
}

var _ admission.Repository = (*admissionRepository)(nil) // interface compliance check

func NewAdmissionRepository(db *DB) *admissionRepository {
	return &admissionRepository{db: db.admission}
}

// compareAdmissions returns -1, 0 or 1 comparing a and b on field. Unknown fields compare equal.
func compareAdmissions(a, b admission.Admission, field string) int {
	cmpStr := func(x, y string) int { return strings.Compare(x, y) }
	cmpInt := func(x, y int64) int {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	switch field {
	case "student_name":
		return cmpStr(a.StudentName, b.StudentName)
	case "status":
		return cmpStr(a.Status, b.Status)
	case "fees":
		return cmpInt(a.Fees, b.Fees)
	case "start_date":
		return cmpInt(a.StartDate.UnixNano(), b.StartDate.UnixNano())
	case "created_at":
		return cmpInt(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	case "updated_at":
		return cmpInt(a.UpdatedAt.UnixNano(), b.UpdatedAt.UnixNano())
	}
	return 0
}

func (repo *admissionRepository) CreateAdmission(_ context.Context, adm admission.Admission, _ ...core.DBExecutor) (admission.Admission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	adm.ID = newID()
	repo.db.table[adm.ID] = &adm
	return adm, nil
}

func (repo *admissionRepository) QueryAdmissions(_ context.Context, filter *admission.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]admission.Admission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	adms := make([]admission.Admission, 0, len(repo.db.table))
	for _, adm := range repo.db.table {
		if filter != nil {
			if filter.Search != "" && !containsAny(filter.Search, adm.StudentName, adm.Contact, adm.Email) {
				continue
			}
			if filter.Status != "" && adm.Status != filter.Status {
				continue
			}
		}
		adms = append(adms, *adm)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	sort.Slice(adms, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareAdmissions(adms[i], adms[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return adms[i].ID < adms[j].ID
	})
	return adms, nil
}

func (repo *admissionRepository) GetAdmission(_ context.Context, id string, _ ...core.DBExecutor) (admission.Admission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if adm, ok := repo.db.table[id]; ok {
		return *adm, nil
	}
	return admission.Admission{}, admission.ErrNotFound
}

func (repo *admissionRepository) UpdateAdmission(_ context.Context, adm admission.Admission, _ ...core.DBExecutor) (admission.Admission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[adm.ID]
	if !ok {
		return admission.Admission{}, admission.ErrNotFound
	}
	// rides_completed is owned by UpdateRideProgress
	adm.RidesCompleted = orig.RidesCompleted
	adm.CreatedAt = orig.CreatedAt
	repo.db.table[adm.ID] = &adm
	return adm, nil
}

func (repo *admissionRepository) UpdateRideProgress(_ context.Context, id string, ridesCompleted int, markCompleted bool, _ ...core.DBExecutor) (admission.Admission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	adm, ok := repo.db.table[id]
	if !ok {
		return admission.Admission{}, admission.ErrNotFound
	}
	adm.RidesCompleted = ridesCompleted
	if markCompleted {
		adm.Status = admission.StatusCompleted
	}
	adm.UpdatedAt = core.NowFunc().UTC()
	return *adm, nil
}

func (repo *admissionRepository) DeleteAdmission(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return admission.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
