package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mizanpos/pos_backend/config"
	"github.com/mizanpos/pos_backend/utils"
	"gorm.io/gorm"
)

// UnattributedName is the legacy sentinel row name holding stock that was
// counted but never attributed to a real color or shape.
const UnattributedName = "غير محدد"

type ProductVariant struct {
	ID           int          `gorm:"primary_key" json:"id"`
	ProductId    int          `gorm:"index;not null" json:"product_id"`
	LocationType LocationType `gorm:"size:1;not null" json:"location_type"`
	LocationId   int          `gorm:"not null" json:"location_id"`
	Type         VariantType  `gorm:"column:variant_type;size:10;not null" json:"variant_type"`
	Name         string       `gorm:"size:100;not null" json:"name"`
	Qty          int          `gorm:"not null;default:0" json:"qty"`
	ColorCode    string       `gorm:"size:20" json:"color_code"`
	ImageUrl     string       `gorm:"type:text" json:"image_url"`
	Value        string       `gorm:"type:text" json:"value"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (v *ProductVariant) Location() LocationRef {
	return LocationRef{Type: v.LocationType, Id: v.LocationId}
}

func (v *ProductVariant) IsUnattributed() bool {
	return v.Name == UnattributedName
}

// ExtraImages digs image URLs out of the free-text value column; legacy
// clients stored JSON with either "image" or "images" there.
func (v *ProductVariant) ExtraImages() []string {
	trimmed := strings.TrimSpace(v.Value)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var doc struct {
		Image  string   `json:"image"`
		Images []string `json:"images"`
	}
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil
	}
	var out []string
	if doc.Image != "" {
		out = append(out, doc.Image)
	}
	for _, img := range doc.Images {
		if img != "" {
			out = append(out, img)
		}
	}
	return out
}

func GetVariants(ctx context.Context, productId int, loc LocationRef) ([]*ProductVariant, error) {
	db := config.GetDB()
	var rows []*ProductVariant
	err := db.WithContext(ctx).
		Where("product_id = ? AND location_type = ? AND location_id = ?", productId, loc.Type, loc.Id).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func GetAllVariants(ctx context.Context, productId int) ([]*ProductVariant, error) {
	db := config.GetDB()
	var rows []*ProductVariant
	err := db.WithContext(ctx).
		Where("product_id = ?", productId).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

/* pure reconciliation math */

// UnassignedQty is how much of a location's counted stock is still open for
// attribution. Named rows subtract from the total; the unattributed bucket
// stays claimable, so it is added back after the subtraction.
func UnassignedQty(totalQty int, variants []*ProductVariant) int {
	named, unattributed := 0, 0
	for _, v := range variants {
		if v.IsUnattributed() {
			unattributed += v.Qty
		} else {
			named += v.Qty
		}
	}
	open := totalQty - named - unattributed
	if open < 0 {
		open = 0
	}
	return open + unattributed
}

// ConsolidationPlan collapses duplicate (variant_type, name) rows: the first
// row of each group absorbs the sum, later rows are deleted. Running it on
// an already clean set yields no work.
func ConsolidationPlan(rows []*ProductVariant) (updates map[int]int, deleteIds []int) {
	updates = map[int]int{}

	type groupKey struct {
		Type VariantType
		Name string
	}
	firstOf := map[groupKey]*ProductVariant{}
	sums := map[groupKey]int{}
	dups := map[groupKey]bool{}

	for _, row := range rows {
		key := groupKey{Type: row.Type, Name: row.Name}
		if _, ok := firstOf[key]; ok {
			dups[key] = true
			deleteIds = append(deleteIds, row.ID)
		} else {
			firstOf[key] = row
		}
		sums[key] += row.Qty
	}

	for key, first := range firstOf {
		if dups[key] {
			updates[first.ID] = sums[key]
		}
	}
	return updates, deleteIds
}

// consolidateVariants loads a location's rows and applies the plan inside
// the caller's transaction.
func consolidateVariants(ctx context.Context, tx *gorm.DB, productId int, loc LocationRef) ([]*ProductVariant, error) {
	var rows []*ProductVariant
	err := tx.WithContext(ctx).
		Where("product_id = ? AND location_type = ? AND location_id = ?", productId, loc.Type, loc.Id).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	updates, deleteIds := ConsolidationPlan(rows)
	for id, qty := range updates {
		if err := tx.WithContext(ctx).Model(&ProductVariant{}).Where("id = ?", id).Update("qty", qty).Error; err != nil {
			return nil, err
		}
	}
	if len(deleteIds) > 0 {
		if err := tx.WithContext(ctx).Where("id IN ?", deleteIds).Delete(&ProductVariant{}).Error; err != nil {
			return nil, err
		}
	}
	if len(updates) == 0 && len(deleteIds) == 0 {
		return rows, nil
	}

	// reload the cleaned set
	rows = rows[:0]
	err = tx.WithContext(ctx).
		Where("product_id = ? AND location_type = ? AND location_id = ?", productId, loc.Type, loc.Id).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

/* assignment sheet */

type AssignmentLine struct {
	Color    ProductColor `json:"color"`
	Qty      int          `json:"qty"`
	NewImage string       `json:"new_image"`
}

// AssignmentSheet is the working state of one attribution pass: the
// location's open quantity plus a line per palette color.
type AssignmentSheet struct {
	ProductId  int            `json:"product_id"`
	Location   LocationRef    `json:"location"`
	Unassigned int            `json:"unassigned"`
	Lines      []AssignmentLine `json:"lines"`
}

// NewAssignmentSheet builds a sheet from already-loaded state; pure.
func NewAssignmentSheet(productId int, loc LocationRef, palette []ProductColor, totalQty int, variants []*ProductVariant) *AssignmentSheet {
	sheet := AssignmentSheet{
		ProductId:  productId,
		Location:   loc,
		Unassigned: UnassignedQty(totalQty, variants),
	}
	for _, color := range palette {
		sheet.Lines = append(sheet.Lines, AssignmentLine{Color: color})
	}
	return &sheet
}

func (s *AssignmentSheet) TotalAssigned() int {
	total := 0
	for _, line := range s.Lines {
		total += line.Qty
	}
	return total
}

func (s *AssignmentSheet) Remaining() int {
	return s.Unassigned - s.TotalAssigned()
}

// SetQty clamps the entered quantity so the sheet total never exceeds the
// open amount and no line goes negative. Returns the applied value.
func (s *AssignmentSheet) SetQty(index int, qty int) int {
	if index < 0 || index >= len(s.Lines) {
		return 0
	}
	if qty < 0 {
		qty = 0
	}
	others := s.TotalAssigned() - s.Lines[index].Qty
	if max := s.Unassigned - others; qty > max {
		qty = max
	}
	if qty < 0 {
		qty = 0
	}
	s.Lines[index].Qty = qty
	return qty
}

// MissingImages lists colors that carry a quantity but still have no image,
// neither on the palette entry nor newly uploaded on the line.
func (s *AssignmentSheet) MissingImages() []string {
	var missing []string
	for _, line := range s.Lines {
		if line.Qty > 0 && line.Color.Image == "" && line.NewImage == "" {
			missing = append(missing, line.Color.Name)
		}
	}
	return missing
}

func (s *AssignmentSheet) CanSave() bool {
	total := s.TotalAssigned()
	return total > 0 && total <= s.Unassigned && len(s.MissingImages()) == 0
}

// assignmentMutations turns a sheet into row-level work against the
// location's current (consolidated) rows; pure, exercised directly by tests.
func assignmentMutations(existing []*ProductVariant, s *AssignmentSheet) (updates []*ProductVariant, inserts []*ProductVariant) {
	byName := map[string]*ProductVariant{}
	for _, row := range existing {
		if row.Type == VariantTypeColor {
			byName[row.Name] = row
		}
	}

	for _, line := range s.Lines {
		if line.Qty <= 0 {
			continue
		}
		image := line.Color.Image
		if line.NewImage != "" {
			image = line.NewImage
		}
		if row, ok := byName[line.Color.Name]; ok {
			row.Qty += line.Qty
			row.ColorCode = line.Color.Code
			if image != "" {
				row.ImageUrl = image
			}
			updates = append(updates, row)
		} else {
			inserts = append(inserts, &ProductVariant{
				ProductId:    s.ProductId,
				LocationType: s.Location.Type,
				LocationId:   s.Location.Id,
				Type:         VariantTypeColor,
				Name:         line.Color.Name,
				Qty:          line.Qty,
				ColorCode:    line.Color.Code,
				ImageUrl:     image,
			})
		}
	}
	return updates, inserts
}

// OpenAssignmentSheet consolidates the location's rows, then builds the
// sheet from fresh state.
func OpenAssignmentSheet(ctx context.Context, productId int, loc LocationRef) (*AssignmentSheet, error) {
	product, err := GetProduct(ctx, productId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	rows, err := consolidateVariants(ctx, tx, productId, loc)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	var level Inventory
	findErr := db.WithContext(ctx).
		Where("product_id = ? AND location_type = ? AND location_id = ?", productId, loc.Type, loc.Id).
		First(&level).Error
	totalQty, err := countedQty(&level, findErr)
	if err != nil {
		return nil, err
	}

	return NewAssignmentSheet(productId, loc, product.Palette(), totalQty, rows), nil
}

// SaveAssignment applies the sheet in one transaction, serialized per
// (product, location) so two operators cannot double-attribute stock.
func SaveAssignment(ctx context.Context, s *AssignmentSheet) error {
	if !s.CanSave() {
		if missing := s.MissingImages(); len(missing) > 0 {
			return fmt.Errorf("color %q needs an image before saving", missing[0])
		}
		return errors.New("nothing to assign")
	}

	lockKey := fmt.Sprintf("%d:%s", s.ProductId, s.Location)
	lock, err := utils.ObtainReconcileLock(ctx, lockKey, "productVariant", "SaveAssignment")
	if err != nil {
		return err
	}
	if lock != nil {
		defer lock.Release(ctx)
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	rows, err := consolidateVariants(ctx, tx, s.ProductId, s.Location)
	if err != nil {
		return err
	}

	// re-check the open amount against post-consolidation state
	var level Inventory
	findErr := tx.WithContext(ctx).
		Where("product_id = ? AND location_type = ? AND location_id = ?", s.ProductId, s.Location.Type, s.Location.Id).
		First(&level).Error
	totalQty, err := countedQty(&level, findErr)
	if err != nil {
		return err
	}
	if s.TotalAssigned() > UnassignedQty(totalQty, rows) {
		return errors.New("assigned quantity exceeds the unassigned stock")
	}

	updates, inserts := assignmentMutations(rows, s)
	for _, row := range updates {
		if err := tx.WithContext(ctx).Save(row).Error; err != nil {
			return err
		}
	}
	for _, row := range inserts {
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			return err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	for _, row := range updates {
		PublishChange(ctx, "product_variants", ChangeActionUpdate, row, nil)
	}
	for _, row := range inserts {
		PublishChange(ctx, "product_variants", ChangeActionInsert, row, nil)
	}
	return nil
}

/* transfer sheet */

type TransferLine struct {
	VariantId int          `json:"variant_id,omitempty"`
	Color     ProductColor `json:"color"`
	Qty       int          `json:"qty"`
	Max       int          `json:"max,omitempty"`
}

// TransferSheet moves already-attributed quantities between colors: take
// from the "from" side, put on the "to" side, totals must balance.
type TransferSheet struct {
	ProductId int            `json:"product_id"`
	Location  LocationRef    `json:"location"`
	From      []TransferLine `json:"from"`
	To        []TransferLine `json:"to"`
}

// NewTransferSheet builds the sheet from loaded state; pure. From lines are
// the currently attributed named colors, to lines the full palette.
func NewTransferSheet(productId int, loc LocationRef, palette []ProductColor, variants []*ProductVariant) *TransferSheet {
	sheet := TransferSheet{ProductId: productId, Location: loc}

	for _, v := range variants {
		if v.Type != VariantTypeColor || v.IsUnattributed() || v.Qty <= 0 {
			continue
		}
		sheet.From = append(sheet.From, TransferLine{
			VariantId: v.ID,
			Color:     ProductColor{Name: v.Name, Code: v.ColorCode, Image: v.ImageUrl},
			Max:       v.Qty,
		})
	}
	for _, color := range palette {
		sheet.To = append(sheet.To, TransferLine{Color: color})
	}
	return &sheet
}

// SetTake clamps a from-line to the quantity that color actually holds.
func (s *TransferSheet) SetTake(index int, qty int) int {
	if index < 0 || index >= len(s.From) {
		return 0
	}
	if qty < 0 {
		qty = 0
	}
	if qty > s.From[index].Max {
		qty = s.From[index].Max
	}
	s.From[index].Qty = qty
	return qty
}

// SetTarget accepts any non-negative amount; balance is checked at save.
func (s *TransferSheet) SetTarget(index int, qty int) int {
	if index < 0 || index >= len(s.To) {
		return 0
	}
	if qty < 0 {
		qty = 0
	}
	s.To[index].Qty = qty
	return qty
}

func (s *TransferSheet) FromTotal() int {
	total := 0
	for _, line := range s.From {
		total += line.Qty
	}
	return total
}

func (s *TransferSheet) ToTotal() int {
	total := 0
	for _, line := range s.To {
		total += line.Qty
	}
	return total
}

func (s *TransferSheet) Balanced() bool {
	return s.FromTotal() == s.ToTotal()
}

func (s *TransferSheet) CanSave() bool {
	return s.Balanced() && s.ToTotal() > 0
}

// transferMutations turns a balanced sheet into row-level work; pure.
// Sources drained to zero are deleted, targets merge into existing rows or
// insert new ones.
func transferMutations(existing []*ProductVariant, s *TransferSheet) (updates map[int]int, deleteIds []int, inserts []*ProductVariant) {
	updates = map[int]int{}

	byId := map[int]*ProductVariant{}
	byName := map[string]*ProductVariant{}
	for _, row := range existing {
		byId[row.ID] = row
		if row.Type == VariantTypeColor {
			byName[row.Name] = row
		}
	}

	// pending qty per existing row id, so a color appearing on both sides
	// nets out within one save
	pending := map[int]int{}
	for _, row := range existing {
		pending[row.ID] = row.Qty
	}

	for _, line := range s.From {
		if line.Qty <= 0 {
			continue
		}
		if _, ok := byId[line.VariantId]; ok {
			pending[line.VariantId] -= line.Qty
		}
	}

	for _, line := range s.To {
		if line.Qty <= 0 {
			continue
		}
		if row, ok := byName[line.Color.Name]; ok {
			pending[row.ID] += line.Qty
		} else {
			inserts = append(inserts, &ProductVariant{
				ProductId:    s.ProductId,
				LocationType: s.Location.Type,
				LocationId:   s.Location.Id,
				Type:         VariantTypeColor,
				Name:         line.Color.Name,
				Qty:          line.Qty,
				ColorCode:    line.Color.Code,
				ImageUrl:     line.Color.Image,
			})
		}
	}

	for _, row := range existing {
		after := pending[row.ID]
		if after == row.Qty {
			continue
		}
		if after <= 0 {
			deleteIds = append(deleteIds, row.ID)
		} else {
			updates[row.ID] = after
		}
	}
	return updates, deleteIds, inserts
}

type variantChange struct {
	action ChangeAction
	row    *ProductVariant
}

// transferChanges pairs each committed mutation with the feed event it
// emits: updated rows with their new quantity, deleted rows as they were,
// inserted rows as created. Pure.
func transferChanges(existing []*ProductVariant, updates map[int]int, deleteIds []int, inserts []*ProductVariant) []variantChange {
	byId := map[int]*ProductVariant{}
	for _, row := range existing {
		byId[row.ID] = row
	}

	var out []variantChange
	for _, row := range existing {
		if qty, ok := updates[row.ID]; ok {
			after := *row
			after.Qty = qty
			out = append(out, variantChange{action: ChangeActionUpdate, row: &after})
		}
	}
	for _, id := range deleteIds {
		if row, ok := byId[id]; ok {
			out = append(out, variantChange{action: ChangeActionDelete, row: row})
		}
	}
	for _, row := range inserts {
		out = append(out, variantChange{action: ChangeActionInsert, row: row})
	}
	return out
}

func OpenTransferSheet(ctx context.Context, productId int, loc LocationRef) (*TransferSheet, error) {
	product, err := GetProduct(ctx, productId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	rows, err := consolidateVariants(ctx, tx, productId, loc)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return NewTransferSheet(productId, loc, product.Palette(), rows), nil
}

func SaveTransfer(ctx context.Context, s *TransferSheet) error {
	if !s.CanSave() {
		return errors.New("taken and assigned totals must match and be positive")
	}

	lockKey := fmt.Sprintf("%d:%s", s.ProductId, s.Location)
	lock, err := utils.ObtainReconcileLock(ctx, lockKey, "productVariant", "SaveTransfer")
	if err != nil {
		return err
	}
	if lock != nil {
		defer lock.Release(ctx)
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer tx.Rollback()

	rows, err := consolidateVariants(ctx, tx, s.ProductId, s.Location)
	if err != nil {
		return err
	}

	// sources must still hold what the sheet takes
	byId := map[int]*ProductVariant{}
	for _, row := range rows {
		byId[row.ID] = row
	}
	for _, line := range s.From {
		if line.Qty <= 0 {
			continue
		}
		row, ok := byId[line.VariantId]
		if !ok {
			return fmt.Errorf("color %q no longer exists at this location", line.Color.Name)
		}
		if line.Qty > row.Qty {
			return fmt.Errorf("color %q only holds %d", line.Color.Name, row.Qty)
		}
	}

	updates, deleteIds, inserts := transferMutations(rows, s)
	for id, qty := range updates {
		if err := tx.WithContext(ctx).Model(&ProductVariant{}).Where("id = ?", id).Update("qty", qty).Error; err != nil {
			return err
		}
	}
	if len(deleteIds) > 0 {
		if err := tx.WithContext(ctx).Where("id IN ?", deleteIds).Delete(&ProductVariant{}).Error; err != nil {
			return err
		}
	}
	for _, row := range inserts {
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			return err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	for _, change := range transferChanges(rows, updates, deleteIds, inserts) {
		if change.action == ChangeActionDelete {
			PublishChange(ctx, "product_variants", change.action, nil, change.row)
		} else {
			PublishChange(ctx, "product_variants", change.action, change.row, nil)
		}
	}
	return nil
}
