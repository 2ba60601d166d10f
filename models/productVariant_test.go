package models

import (
	"testing"
)

// DB-free tests for the reconciliation math: unassigned pools, duplicate
// consolidation, clamped assignment sheets and balanced transfers.

func TestUnassignedQty(t *testing.T) {
	cases := []struct {
		name     string
		total    int
		variants []*ProductVariant
		want     int
	}{
		{
			name:  "no variants",
			total: 10,
			want:  10,
		},
		{
			name:  "named rows subtract",
			total: 20,
			variants: []*ProductVariant{
				{Name: "أحمر", Qty: 5},
			},
			want: 15,
		},
		{
			name:  "unattributed bucket stays claimable",
			total: 20,
			variants: []*ProductVariant{
				{Name: "أحمر", Qty: 5},
				{Name: UnattributedName, Qty: 8},
			},
			want: 15,
		},
		{
			name:  "over-attributed clamps at the bucket",
			total: 10,
			variants: []*ProductVariant{
				{Name: "أحمر", Qty: 9},
				{Name: "أزرق", Qty: 6},
				{Name: UnattributedName, Qty: 2},
			},
			want: 2,
		},
	}

	for _, tc := range cases {
		if got := UnassignedQty(tc.total, tc.variants); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestConsolidationPlan_MergesDuplicates(t *testing.T) {
	rows := []*ProductVariant{
		{ID: 1, Type: VariantTypeColor, Name: "أحمر", Qty: 3},
		{ID: 2, Type: VariantTypeColor, Name: "أزرق", Qty: 4},
		{ID: 3, Type: VariantTypeColor, Name: "أحمر", Qty: 2},
		{ID: 4, Type: VariantTypeShape, Name: "أحمر", Qty: 9},
	}

	updates, deleteIds := ConsolidationPlan(rows)

	if len(updates) != 1 || updates[1] != 5 {
		t.Fatalf("expected first red row updated to 5, got %v", updates)
	}
	if len(deleteIds) != 1 || deleteIds[0] != 3 {
		t.Fatalf("expected the duplicate red row deleted, got %v", deleteIds)
	}
}

func TestConsolidationPlan_Idempotent(t *testing.T) {
	rows := []*ProductVariant{
		{ID: 1, Type: VariantTypeColor, Name: "أحمر", Qty: 5},
		{ID: 2, Type: VariantTypeColor, Name: "أزرق", Qty: 7},
	}

	updates, deleteIds := ConsolidationPlan(rows)
	if len(updates) != 0 || len(deleteIds) != 0 {
		t.Fatalf("clean rows must produce no work, got updates=%v deletes=%v", updates, deleteIds)
	}
}

func paletteRGB() []ProductColor {
	return []ProductColor{
		{Name: "أحمر", Code: "#ff0000", Image: "https://cdn.test/red.jpg"},
		{Name: "أزرق", Code: "#0000ff", Image: "https://cdn.test/blue.jpg"},
		{Name: "أخضر", Code: "#00ff00"},
	}
}

func TestAssignmentSheet_ClampsToPool(t *testing.T) {
	loc := LocationRef{Type: LocationTypeBranch, Id: 1}
	sheet := NewAssignmentSheet(1, loc, paletteRGB(), 10, nil)

	if sheet.Unassigned != 10 {
		t.Fatalf("expected pool of 10, got %d", sheet.Unassigned)
	}

	if got := sheet.SetQty(0, 7); got != 7 {
		t.Fatalf("expected 7 accepted, got %d", got)
	}
	// 7 already assigned; asking for 6 more must clamp to the remaining 3
	if got := sheet.SetQty(1, 6); got != 3 {
		t.Fatalf("expected clamp to 3, got %d", got)
	}
	if total := sheet.TotalAssigned(); total != 10 {
		t.Fatalf("total may never exceed the pool, got %d", total)
	}
	if got := sheet.SetQty(2, -4); got != 0 {
		t.Fatalf("negative input must clamp to 0, got %d", got)
	}
	if sheet.Remaining() != 0 {
		t.Fatalf("expected nothing remaining, got %d", sheet.Remaining())
	}
}

func TestAssignmentSheet_ImagePrecondition(t *testing.T) {
	loc := LocationRef{Type: LocationTypeBranch, Id: 1}
	sheet := NewAssignmentSheet(1, loc, paletteRGB(), 10, nil)

	// أخضر has no palette image
	sheet.SetQty(2, 4)
	if sheet.CanSave() {
		t.Fatal("a color with quantity but no image must block saving")
	}
	missing := sheet.MissingImages()
	if len(missing) != 1 || missing[0] != "أخضر" {
		t.Fatalf("expected أخضر reported missing, got %v", missing)
	}

	// uploading an image in this session unblocks it
	sheet.Lines[2].NewImage = "https://cdn.test/green.jpg"
	if !sheet.CanSave() {
		t.Fatal("expected save to be allowed once the image is supplied")
	}
}

func TestAssignmentSheet_EmptySaveBlocked(t *testing.T) {
	loc := LocationRef{Type: LocationTypeBranch, Id: 1}
	sheet := NewAssignmentSheet(1, loc, paletteRGB(), 10, nil)
	if sheet.CanSave() {
		t.Fatal("saving with nothing assigned must be blocked")
	}
}

func TestAssignmentMutations_MergeAndInsert(t *testing.T) {
	loc := LocationRef{Type: LocationTypeBranch, Id: 1}
	existing := []*ProductVariant{
		{ID: 11, ProductId: 1, LocationType: loc.Type, LocationId: loc.Id,
			Type: VariantTypeColor, Name: "أحمر", Qty: 5, ImageUrl: "https://cdn.test/old-red.jpg"},
	}

	sheet := NewAssignmentSheet(1, loc, paletteRGB(), 20, existing)
	if sheet.Unassigned != 15 {
		t.Fatalf("expected unassigned 15, got %d", sheet.Unassigned)
	}
	sheet.SetQty(0, 3) // أحمر
	sheet.SetQty(1, 7) // أزرق
	if !sheet.CanSave() {
		t.Fatal("expected a saveable sheet")
	}

	updates, inserts := assignmentMutations(existing, sheet)

	if len(updates) != 1 {
		t.Fatalf("expected one merged row, got %d", len(updates))
	}
	if updates[0].ID != 11 || updates[0].Qty != 8 {
		t.Fatalf("expected أحمر row 11 at qty 8, got id=%d qty=%d", updates[0].ID, updates[0].Qty)
	}
	if updates[0].ImageUrl != "https://cdn.test/red.jpg" {
		t.Fatalf("merge must refresh the image, got %q", updates[0].ImageUrl)
	}

	if len(inserts) != 1 {
		t.Fatalf("expected one inserted row, got %d", len(inserts))
	}
	if inserts[0].Name != "أزرق" || inserts[0].Qty != 7 {
		t.Fatalf("expected أزرق qty 7 inserted, got %+v", inserts[0])
	}

	// unassigned recomputes after applying the mutations
	after := []*ProductVariant{updates[0], inserts[0]}
	if got := UnassignedQty(20, after); got != 5 {
		t.Fatalf("expected unassigned 5 after save, got %d", got)
	}
}

func TestTransferSheet_TakeClampedToHolding(t *testing.T) {
	loc := LocationRef{Type: LocationTypeBranch, Id: 1}
	existing := []*ProductVariant{
		{ID: 1, Type: VariantTypeColor, Name: "أحمر", Qty: 5},
		{ID: 2, Type: VariantTypeColor, Name: "أزرق", Qty: 2},
		{ID: 3, Type: VariantTypeColor, Name: UnattributedName, Qty: 4},
	}

	sheet := NewTransferSheet(1, loc, paletteRGB(), existing)

	if len(sheet.From) != 2 {
		t.Fatalf("the unattributed bucket must not appear on the from side, got %d lines", len(sheet.From))
	}
	if got := sheet.SetTake(0, 9); got != 5 {
		t.Fatalf("take must clamp to the held quantity, got %d", got)
	}
	if got := sheet.SetTake(1, -1); got != 0 {
		t.Fatalf("negative take must clamp to 0, got %d", got)
	}
}

func TestTransferSheet_BalanceEnforcement(t *testing.T) {
	loc := LocationRef{Type: LocationTypeBranch, Id: 1}
	existing := []*ProductVariant{
		{ID: 1, Type: VariantTypeColor, Name: "أحمر", Qty: 7},
	}

	sheet := NewTransferSheet(1, loc, paletteRGB(), existing)
	sheet.SetTake(0, 7)
	// أزرق is index 1 in the palette
	sheet.SetTarget(1, 5)

	if sheet.CanSave() {
		t.Fatal("7 out vs 5 in must leave save disabled")
	}
	sheet.SetTarget(1, 7)
	if !sheet.CanSave() {
		t.Fatal("balanced totals must enable save")
	}
}

func TestTransferSheet_ZeroTransferBlocked(t *testing.T) {
	loc := LocationRef{Type: LocationTypeBranch, Id: 1}
	sheet := NewTransferSheet(1, loc, paletteRGB(), nil)
	if sheet.CanSave() {
		t.Fatal("an all-zero transfer must be blocked even though it balances")
	}
}

func TestTransferMutations_DrainDeletesMergeInserts(t *testing.T) {
	loc := LocationRef{Type: LocationTypeBranch, Id: 1}
	existing := []*ProductVariant{
		{ID: 1, ProductId: 1, LocationType: loc.Type, LocationId: loc.Id,
			Type: VariantTypeColor, Name: "أحمر", Qty: 5},
		{ID: 2, ProductId: 1, LocationType: loc.Type, LocationId: loc.Id,
			Type: VariantTypeColor, Name: "أزرق", Qty: 3},
	}

	sheet := NewTransferSheet(1, loc, paletteRGB(), existing)
	sheet.SetTake(0, 5)  // drain أحمر entirely
	sheet.SetTarget(1, 2) // أزرق gains 2
	sheet.SetTarget(2, 3) // أخضر is new
	if !sheet.CanSave() {
		t.Fatal("expected a balanced saveable transfer")
	}

	updates, deleteIds, inserts := transferMutations(existing, sheet)

	if len(deleteIds) != 1 || deleteIds[0] != 1 {
		t.Fatalf("a fully drained source must be deleted, got %v", deleteIds)
	}
	if len(updates) != 1 || updates[2] != 5 {
		t.Fatalf("expected أزرق updated to 5, got %v", updates)
	}
	if len(inserts) != 1 || inserts[0].Name != "أخضر" || inserts[0].Qty != 3 {
		t.Fatalf("expected أخضر inserted with qty 3, got %+v", inserts)
	}

	// stock is conserved: 5+3 before, 5+3 after
	total := 0
	for _, qty := range updates {
		total += qty
	}
	for _, row := range inserts {
		total += row.Qty
	}
	if total != 8 {
		t.Fatalf("transfer must conserve stock, got %d", total)
	}
}

func TestTransferChanges_PerRowEvents(t *testing.T) {
	loc := LocationRef{Type: LocationTypeBranch, Id: 1}
	existing := []*ProductVariant{
		{ID: 1, ProductId: 1, LocationType: loc.Type, LocationId: loc.Id,
			Type: VariantTypeColor, Name: "أحمر", Qty: 5},
		{ID: 2, ProductId: 1, LocationType: loc.Type, LocationId: loc.Id,
			Type: VariantTypeColor, Name: "أزرق", Qty: 3},
	}

	sheet := NewTransferSheet(1, loc, paletteRGB(), existing)
	sheet.SetTake(0, 5)   // drain أحمر entirely
	sheet.SetTarget(1, 2) // أزرق gains 2
	sheet.SetTarget(2, 3) // أخضر is new

	updates, deleteIds, inserts := transferMutations(existing, sheet)
	changes := transferChanges(existing, updates, deleteIds, inserts)

	if len(changes) != 3 {
		t.Fatalf("expected one event per mutated row, got %d", len(changes))
	}

	byAction := map[ChangeAction]variantChange{}
	for _, change := range changes {
		byAction[change.action] = change
	}

	update := byAction[ChangeActionUpdate]
	if update.row == nil || update.row.Name != "أزرق" || update.row.Qty != 5 {
		t.Fatalf("update event must carry the new quantity, got %+v", update.row)
	}
	// the loaded row itself keeps its pre-save quantity
	if existing[1].Qty != 3 {
		t.Fatalf("building events must not mutate loaded rows, got %d", existing[1].Qty)
	}

	deleted := byAction[ChangeActionDelete]
	if deleted.row == nil || deleted.row.ID != 1 || deleted.row.Qty != 5 {
		t.Fatalf("delete event must carry the drained row as it was, got %+v", deleted.row)
	}

	inserted := byAction[ChangeActionInsert]
	if inserted.row == nil || inserted.row.Name != "أخضر" || inserted.row.Qty != 3 {
		t.Fatalf("insert event must carry the created row, got %+v", inserted.row)
	}
}

func TestTransferMutations_SameColorBothSidesNetsOut(t *testing.T) {
	loc := LocationRef{Type: LocationTypeBranch, Id: 1}
	existing := []*ProductVariant{
		{ID: 1, Type: VariantTypeColor, Name: "أحمر", Qty: 6},
		{ID: 2, Type: VariantTypeColor, Name: "أزرق", Qty: 4},
	}

	sheet := NewTransferSheet(1, loc, paletteRGB(), existing)
	sheet.SetTake(0, 2)   // أحمر gives 2
	sheet.SetTake(1, 1)   // أزرق gives 1
	sheet.SetTarget(0, 1) // أحمر also receives 1
	sheet.SetTarget(2, 2) // أخضر receives 2

	if !sheet.CanSave() {
		t.Fatal("expected balanced sheet")
	}
	updates, deleteIds, inserts := transferMutations(existing, sheet)

	if len(deleteIds) != 0 {
		t.Fatalf("nothing drains to zero here, got deletes %v", deleteIds)
	}
	if updates[1] != 5 {
		t.Fatalf("أحمر nets 6-2+1=5, got %d", updates[1])
	}
	if updates[2] != 3 {
		t.Fatalf("أزرق nets 4-1=3, got %d", updates[2])
	}
	if len(inserts) != 1 || inserts[0].Qty != 2 {
		t.Fatalf("expected أخضر inserted at 2, got %+v", inserts)
	}
}
