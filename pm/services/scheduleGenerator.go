package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"medequip-backend/config"
	"medequip-backend/db/models"
	imports "medequip-backend/imports/services"
	"medequip-backend/utils"
)

// PMStore is the persistence the schedule generator and status refresher need.
type PMStore interface {
	// FindProducts returns products indexed by lower-cased part number.
	FindProducts(ctx context.Context, materialCodes []string) (map[string]models.Product, error)
	// FindLatestContracts returns the contract with the latest end date per
	// lower-cased serial number.
	FindLatestContracts(ctx context.Context, serials []string) (map[string]models.AMCContract, error)
	// FindCustomers returns customers indexed by lower-cased customer code.
	FindCustomers(ctx context.Context, codes []string) (map[string]models.Customer, error)
	// FindCompletedTypes returns, per lower-cased serial, the PM types already Completed.
	FindCompletedTypes(ctx context.Context, serials []string) (map[string]map[string]bool, error)
	// DeleteOpen removes every non-Completed PM record of the serials.
	DeleteOpen(ctx context.Context, serials []string) (int64, error)
	// InsertPMs stores records and returns the error of each rejected index.
	InsertPMs(ctx context.Context, records []models.PMRecord) (map[int]string, error)
	FindOpenAfter(ctx context.Context, after uuid.UUID, limit int) ([]models.PMRecord, error)
	SetStatus(ctx context.Context, ids []uuid.UUID, status models.PMStatus) error
}

// Breakdown keys reported in the import summary.
const (
	BreakdownGenerated        = "pmGenerated"
	BreakdownDeleted          = "pmDeleted"
	BreakdownFailed           = "pmFailed"
	BreakdownSkippedCompleted = "pmSkippedCompleted"
)

// ScheduleGenerator rebuilds the PM schedule of every equipment record an
// upload confirmed. Non-completed PMs are wiped and regenerated from the
// current warranty and contract dates; completed ones are never recreated.
type ScheduleGenerator struct {
	store     PMStore
	chunkSize int
	now       func() time.Time
}

func NewScheduleGenerator(store PMStore, chunkSize int, now func() time.Time) *ScheduleGenerator {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	if now == nil {
		now = utils.Today
	}
	return &ScheduleGenerator{store: store, chunkSize: chunkSize, now: now}
}

func (g *ScheduleGenerator) Name() string {
	return "PM schedule generation"
}

type pmTarget struct {
	key       string
	equipment imports.Record
	serial    string
}

// AfterBatch implements the import engine's post-write hook.
func (g *ScheduleGenerator) AfterBatch(ctx context.Context, records []imports.ConfirmedRecord) (imports.HookOutcome, error) {
	outcome := imports.HookOutcome{Breakdown: map[string]int{}, Warnings: map[string][]string{}}

	targets := make([]pmTarget, 0, len(records))
	var serials, materials, customers []string
	for _, rec := range records {
		serial := str(rec.Values["serialnumber"])
		if serial == "" {
			continue
		}
		targets = append(targets, pmTarget{key: rec.Key, equipment: rec.Values, serial: serial})
		serials = append(serials, strings.ToLower(serial))
		if m := str(rec.Values["materialcode"]); m != "" {
			materials = append(materials, strings.ToLower(m))
		}
		if c := str(rec.Values["currentcustomer"]); c != "" {
			customers = append(customers, strings.ToLower(c))
		}
	}
	if len(targets) == 0 {
		return outcome, nil
	}

	products, err := g.store.FindProducts(ctx, materials)
	if err != nil {
		return outcome, fmt.Errorf("load products: %w", err)
	}
	contracts, err := g.store.FindLatestContracts(ctx, serials)
	if err != nil {
		return outcome, fmt.Errorf("load contracts: %w", err)
	}
	customerByCode, err := g.store.FindCustomers(ctx, customers)
	if err != nil {
		return outcome, fmt.Errorf("load customers: %w", err)
	}
	completed, err := g.store.FindCompletedTypes(ctx, serials)
	if err != nil {
		return outcome, fmt.Errorf("load completed PMs: %w", err)
	}

	deleted, err := g.store.DeleteOpen(ctx, serials)
	if err != nil {
		return outcome, fmt.Errorf("delete open PMs: %w", err)
	}
	outcome.Breakdown[BreakdownDeleted] = int(deleted)

	now := g.now()
	stamp := time.Now()
	var (
		pending []models.PMRecord
		owners  []string
	)
	for _, t := range targets {
		lowerSerial := strings.ToLower(t.serial)
		material := str(t.equipment["materialcode"])

		interval := DefaultIntervalMonths
		if p, ok := products[strings.ToLower(material)]; ok {
			interval = IntervalForFrequency(p.Frequency)
		} else if material != "" {
			outcome.Warnings[t.key] = append(outcome.Warnings[t.key],
				fmt.Sprintf("No product found for material %s, using a %d month PM interval", material, DefaultIntervalMonths))
		}

		customer := customerByCode[strings.ToLower(str(t.equipment["currentcustomer"]))]
		done := completed[lowerSerial]

		for _, r := range rangesFor(t.equipment, contracts[lowerSerial]) {
			for _, occ := range Occurrences(r, interval) {
				if done[occ.Type] {
					outcome.Breakdown[BreakdownSkippedCompleted]++
					continue
				}
				pending = append(pending, models.PMRecord{
					ID:                  uuid.New(),
					PmType:              occ.Type,
					Serialnumber:        t.serial,
					Materialcode:        material,
					Materialdescription: str(t.equipment["materialdescription"]),
					Customercode:        str(t.equipment["currentcustomer"]),
					Customername:        customer.Customername,
					Region:              customer.Region,
					City:                customer.City,
					PmDueMonth:          DueMonth(occ.Due),
					PmDueDate:           occ.Due,
					PmStatus:            ClassifyStatus(occ.Due, now),
					CreatedAt:           stamp,
					ModifiedAt:          stamp,
				})
				owners = append(owners, t.key)
			}
		}
	}

	for start := 0; start < len(pending); start += g.chunkSize {
		end := start + g.chunkSize
		if end > len(pending) {
			end = len(pending)
		}
		failed, err := g.store.InsertPMs(ctx, pending[start:end])
		if err != nil {
			for i := start; i < len(pending); i++ {
				outcome.Warnings[owners[i]] = append(outcome.Warnings[owners[i]],
					fmt.Sprintf("PM %s not created: %v", pending[i].PmType, err))
			}
			outcome.Breakdown[BreakdownFailed] += len(pending) - start
			config.Logger.Error("PM insert aborted",
				zap.Int("remaining", len(pending)-start),
				zap.Error(err),
			)
			return outcome, nil
		}
		for i := start; i < end; i++ {
			rec := pending[i]
			if msg, bad := failed[i-start]; bad {
				outcome.Breakdown[BreakdownFailed]++
				outcome.Warnings[owners[i]] = append(outcome.Warnings[owners[i]],
					fmt.Sprintf("PM %s not created: %s", rec.PmType, msg))
				continue
			}
			outcome.Breakdown[BreakdownGenerated]++
			outcome.Breakdown[typeBreakdownKey(rec.PmType)]++
		}
	}
	return outcome, nil
}

// rangesFor collects the coverage windows of an equipment record in
// warranty, extended warranty, contract order.
func rangesFor(equipment imports.Record, contract models.AMCContract) []DateRange {
	var out []DateRange
	add := func(prefix string, start, end any) {
		s, okStart := imports.ParseDate(start)
		e, okEnd := imports.ParseDate(end)
		if okStart && okEnd {
			out = append(out, DateRange{Prefix: prefix, Start: s, End: e})
		}
	}
	add(WarrantyPrefix, equipment["custWarrantystartdate"], equipment["custWarrantyenddate"])
	add(ExtendedWarrantyPrefix, equipment["dealerwarrantystartdate"], equipment["dealerwarrantyenddate"])
	if contract.Startdate != nil && contract.Enddate != nil {
		prefix := ContractPrefix
		if strings.EqualFold(strings.TrimSpace(contract.SatypeZDRCZDRN), models.NonComprehensiveContractCode) {
			prefix = NonComprehensivePrefix
		}
		add(prefix, *contract.Startdate, *contract.Enddate)
	}
	return out
}

func typeBreakdownKey(pmType string) string {
	switch {
	case strings.HasPrefix(pmType, WarrantyPrefix):
		return "warrantyPMs"
	case strings.HasPrefix(pmType, ExtendedWarrantyPrefix):
		return "extendedWarrantyPMs"
	case strings.HasPrefix(pmType, NonComprehensivePrefix):
		return "nonComprehensiveContractPMs"
	}
	return "contractPMs"
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
