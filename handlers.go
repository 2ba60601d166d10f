package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mizanpos/pos_backend/models"
)

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func locationFromQuery(c *gin.Context) (models.LocationRef, bool) {
	locType := models.LocationType(c.Query("location_type"))
	locId, err := strconv.Atoi(c.Query("location_id"))
	if !locType.IsValid() || err != nil || locId <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location_type and location_id are required"})
		return models.LocationRef{}, false
	}
	return models.LocationRef{Type: locType, Id: locId}, true
}

/* auth */

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp, err := models.Login(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

/* products */

func listProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.ProductFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		conn, err := models.ListProducts(c.Request.Context(), &filter)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func createProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		product, err := models.CreateProduct(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

func getProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		product, err := models.GetProduct(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func updateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewProduct
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		product, err := models.UpdateProduct(c.Request.Context(), id, &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func deleteProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		product, err := models.DeleteProduct(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

func productViewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		view, err := models.GetProductView(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		// optional location filter for totals and status
		selected := models.LocationSet(nil)
		if c.Query("location_type") != "" {
			loc, ok := locationFromQuery(c)
			if !ok {
				return
			}
			selected = models.NewLocationSet(loc)
		}

		c.JSON(http.StatusOK, gin.H{
			"view":         view,
			"qty":          view.QtyIn(selected),
			"stock_status": view.Status(selected),
			"variants":     view.VariantsIn(selected),
			"levels":       view.Levels,
		})
	}
}

func savePaletteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input struct {
			Colors []models.ProductColor `json:"colors" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		product, err := models.SavePalette(c.Request.Context(), id, input.Colors)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

/* inventory */

func productInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		rows, err := models.GetProductInventory(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows": rows, "total_qty": models.TotalQty(rows)})
	}
}

func upsertInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInventory
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		row, err := models.UpsertInventory(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

/* variants */

func productVariantsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if c.Query("location_type") == "" {
			rows, err := models.GetAllVariants(c.Request.Context(), id)
			if err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, rows)
			return
		}
		loc, ok := locationFromQuery(c)
		if !ok {
			return
		}
		rows, err := models.GetVariants(c.Request.Context(), id, loc)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func assignmentSheetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		loc, ok := locationFromQuery(c)
		if !ok {
			return
		}
		sheet, err := models.OpenAssignmentSheet(c.Request.Context(), id, loc)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sheet)
	}
}

type assignmentRequest struct {
	LocationType models.LocationType `json:"location_type" binding:"required"`
	LocationId   int                 `json:"location_id" binding:"required"`
	Lines        []struct {
		Name     string `json:"name" binding:"required"`
		Qty      int    `json:"qty"`
		NewImage string `json:"new_image"`
	} `json:"lines" binding:"required"`
}

func saveAssignmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req assignmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		loc := models.LocationRef{Type: req.LocationType, Id: req.LocationId}
		if !loc.Type.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location type"})
			return
		}

		sheet, err := models.OpenAssignmentSheet(c.Request.Context(), id, loc)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		for _, line := range req.Lines {
			for i := range sheet.Lines {
				if sheet.Lines[i].Color.Name != line.Name {
					continue
				}
				sheet.Lines[i].NewImage = line.NewImage
				sheet.SetQty(i, line.Qty)
				break
			}
		}
		if err := models.SaveAssignment(c.Request.Context(), sheet); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sheet)
	}
}

func transferSheetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		loc, ok := locationFromQuery(c)
		if !ok {
			return
		}
		sheet, err := models.OpenTransferSheet(c.Request.Context(), id, loc)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sheet)
	}
}

type transferRequest struct {
	LocationType models.LocationType `json:"location_type" binding:"required"`
	LocationId   int                 `json:"location_id" binding:"required"`
	From         []struct {
		Name string `json:"name" binding:"required"`
		Qty  int    `json:"qty"`
	} `json:"from" binding:"required"`
	To []struct {
		Name string `json:"name" binding:"required"`
		Qty  int    `json:"qty"`
	} `json:"to" binding:"required"`
}

func saveTransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req transferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		loc := models.LocationRef{Type: req.LocationType, Id: req.LocationId}
		if !loc.Type.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location type"})
			return
		}

		sheet, err := models.OpenTransferSheet(c.Request.Context(), id, loc)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		for _, line := range req.From {
			for i := range sheet.From {
				if sheet.From[i].Color.Name == line.Name {
					sheet.SetTake(i, line.Qty)
					break
				}
			}
		}
		for _, line := range req.To {
			for i := range sheet.To {
				if sheet.To[i].Color.Name == line.Name {
					sheet.SetTarget(i, line.Qty)
					break
				}
			}
		}
		if err := models.SaveTransfer(c.Request.Context(), sheet); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, sheet)
	}
}

/* branches & warehouses */

func listBranchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		branches, err := models.GetBranches(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, branches)
	}
}

func createBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBranch
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		branch, err := models.CreateBranch(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, branch)
	}
}

func updateBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewBranch
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		branch, err := models.UpdateBranch(c.Request.Context(), id, &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, branch)
	}
}

func deleteBranchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		branch, err := models.DeleteBranch(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, branch)
	}
}

func listWarehousesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		warehouses, err := models.GetWarehouses(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, warehouses)
	}
}

func createWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewWarehouse
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		warehouse, err := models.CreateWarehouse(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, warehouse)
	}
}

func updateWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewWarehouse
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		warehouse, err := models.UpdateWarehouse(c.Request.Context(), id, &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, warehouse)
	}
}

func deleteWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		warehouse, err := models.DeleteWarehouse(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, warehouse)
	}
}

func listLocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		locations, err := models.GetLocations(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, locations)
	}
}

/* categories */

func listCategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := models.GetCategories(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, categories)
	}
}

func categoryTreeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tree, err := models.GetCategoryTree(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, tree)
	}
}

func createCategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCategory
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		category, err := models.CreateCategory(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, category)
	}
}

func updateCategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input models.NewCategory
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		category, err := models.UpdateCategory(c.Request.Context(), id, &input)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, category)
	}
}

func deleteCategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		category, err := models.DeleteCategory(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, category)
	}
}

/* orders */

func listOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.OrderFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		conn, err := models.ListOrders(c.Request.Context(), &filter)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

func getOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		order, err := models.GetOrder(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func orderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input struct {
			Status models.OrderStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := models.UpdateOrderStatus(c.Request.Context(), id, input.Status)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

/* reports */

func reportRange(c *gin.Context) (time.Time, time.Time, []int, bool) {
	const layout = "2006-01-02"

	from, err := time.Parse(layout, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
		return time.Time{}, time.Time{}, nil, false
	}
	to, err := time.Parse(layout, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
		return time.Time{}, time.Time{}, nil, false
	}
	// inclusive end date
	to = to.AddDate(0, 0, 1)

	var branchIds []int
	for _, raw := range c.QueryArray("branch_id") {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid branch_id"})
			return time.Time{}, time.Time{}, nil, false
		}
		branchIds = append(branchIds, id)
	}
	return from, to, branchIds, true
}

func salesReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "salesReport")
		defer span.End()

		from, to, branchIds, ok := reportRange(c)
		if !ok {
			return
		}
		rows, err := models.GetSalesReport(ctx, from, to, branchIds)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func salesReportExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "salesReportExport")
		defer span.End()

		from, to, branchIds, ok := reportRange(c)
		if !ok {
			return
		}
		rows, err := models.GetSalesReport(ctx, from, to, branchIds)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		buf, err := models.ExportSalesReportExcel(rows, from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		filename := "sales_" + from.Format("2006-01-02") + ".xlsx"
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	}
}
