package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/application/service"
	"github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/internal/presentation/http/dto/request"
	"github.com/sangkips/pos-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pos-engine/pkg/pagination"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxImportSize bounds uploaded catalog spreadsheets
const maxImportSize = 10 << 20

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	catalogService *service.CatalogService
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalogService *service.CatalogService) *ProductHandler {
	return &ProductHandler{catalogService: catalogService}
}

// List handles listing products
func (h *ProductHandler) List(c *gin.Context) {
	var filter request.ProductFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	params := &repository.ProductFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    filter.Page,
			PerPage: filter.PerPage,
		},
		Search:    filter.Search,
		Category:  filter.Category,
		LowStock:  filter.LowStock,
		SortBy:    filter.SortBy,
		SortOrder: filter.SortOrder,
	}

	result, err := h.catalogService.ListProducts(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, "Products retrieved successfully", result)
}

// Create handles creating a product
func (h *ProductHandler) Create(c *gin.Context) {
	var req request.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), productInput(c, &req))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, "Product created successfully", product)
}

// Get handles getting a single product
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProductByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Product retrieved successfully", product)
}

// Lookup resolves a scanned barcode or SKU
func (h *ProductHandler) Lookup(c *gin.Context) {
	product, err := h.catalogService.LookupByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Product retrieved successfully", product)
}

// Update handles updating a product. Stock in the body is ignored; use the
// adjust endpoint.
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, productInput(c, &req))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Product updated successfully", product)
}

// Delete handles deleting a product
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	response.NoContent(c)
}

// GetLowStock handles getting low stock products
func (h *ProductHandler) GetLowStock(c *gin.Context) {
	products, err := h.catalogService.GetLowStockProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Low stock products retrieved successfully", products)
}

// AdjustStock handles a manual stock correction
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	movement, err := h.catalogService.AdjustStock(c.Request.Context(), &service.AdjustStockInput{
		ProductID:  id,
		Delta:      req.Delta,
		Reason:     req.Reason,
		Reference:  req.Reference,
		Note:       req.Note,
		OperatorID: operatorID(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Stock adjusted successfully", movement)
}

// Movements lists the stock history of a product
func (h *ProductHandler) Movements(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	params := pagination.DefaultCursorParams()
	if err := c.ShouldBindQuery(params); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	if _, err := params.DecodeCursor(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.catalogService.ListMovements(c.Request.Context(), id, params)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Stock movements retrieved successfully", result)
}

// Export downloads the catalog as a spreadsheet
func (h *ProductHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.catalogService.ExportProducts(c.Request.Context(), &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := "products-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Import upserts products from an uploaded spreadsheet
func (h *ProductHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)

	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "A spreadsheet must be uploaded in the \"file\" field")
		return
	}
	file, err := header.Open()
	if err != nil {
		response.BadRequest(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	result, err := h.catalogService.ImportProducts(c.Request.Context(), file, operatorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Products imported successfully", result)
}

func productInput(c *gin.Context, req *request.ProductRequest) *service.ProductInput {
	return &service.ProductInput{
		SKU:               req.SKU,
		Barcode:           req.Barcode,
		Name:              req.Name,
		Category:          req.Category,
		UnitType:          req.UnitType,
		QuantityScale:     req.QuantityScale,
		UnitPrice:         req.UnitPrice,
		TaxRate:           req.TaxRate,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		OperatorID:        operatorID(c),
	}
}

// PurchaseHandler handles goods received from suppliers
type PurchaseHandler struct {
	catalogService *service.CatalogService
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(catalogService *service.CatalogService) *PurchaseHandler {
	return &PurchaseHandler{catalogService: catalogService}
}

// Receive increments stock for every line of a purchase
func (h *PurchaseHandler) Receive(c *gin.Context) {
	var req request.ReceivePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	input := &service.ReceivePurchaseInput{
		Reference:  req.Reference,
		Note:       req.Note,
		OperatorID: operatorID(c),
	}
	for _, line := range req.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			response.BadRequest(c, "Invalid product_id format")
			return
		}
		input.Lines = append(input.Lines, service.PurchaseLine{ProductID: productID, Quantity: line.Quantity})
	}

	movements, err := h.catalogService.ReceivePurchase(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, "Purchase received successfully", movements)
}
