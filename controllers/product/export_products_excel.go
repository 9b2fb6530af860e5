package productcontroller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

// Column order shared by export and import.
var sheetHeaders = []string{
	"ID", "Name", "Description", "Price", "Type", "Category", "ImageURL", "CreatedAt",
}

// BuildProductsWorkbook renders products into a single-sheet workbook.
// Prices are written in major units so the sheet round-trips through import.
func BuildProductsWorkbook(products []models.Product) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, err
	}

	headerRow := sheet.AddRow()
	for _, h := range sheetHeaders {
		headerRow.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(p.ID))
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(FormatPrice(p.Price))
		row.AddCell().SetString(p.Type)
		categoryName := ""
		if p.Category != nil {
			categoryName = p.Category.Name
		}
		row.AddCell().SetString(categoryName)
		row.AddCell().SetString(p.ImageURL)
		row.AddCell().SetString(p.CreatedAt.Format(time.RFC3339))
	}
	return file, nil
}

// GET /products/export (admin)
func ExportProductsToExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := ListProducts(db.WithContext(c.Request.Context()), "")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}

		file, err := BuildProductsWorkbook(products)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel sheet"})
			return
		}

		filename := fmt.Sprintf("products-%s.xlsx", time.Now().Format("20060102"))
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")
		c.Status(http.StatusOK)

		if err := file.Write(c.Writer); err != nil {
			c.Error(err)
		}
	}
}
