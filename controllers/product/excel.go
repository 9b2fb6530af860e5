package productcontroller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/DelightGeorge/Ikeya-Backend/models"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"
)

type ImportResult struct {
	Created int      `json:"createdCount"`
	Updated int      `json:"updatedCount"`
	Skipped int      `json:"skippedCount"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportProducts applies every data row of the first sheet. A row with a
// known ID updates that product; anything else creates one. Each row
// commits on its own so one bad row does not discard the rest.
func ImportProducts(db *gorm.DB, file *xlsx.File) (ImportResult, error) {
	var result ImportResult
	if len(file.Sheets) == 0 || file.Sheets[0].MaxRow < 2 {
		return result, errors.New("excel file is empty or missing header row")
	}

	sheet := file.Sheets[0]
	for i := 1; i < sheet.MaxRow && i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		get := func(index int) string {
			if row != nil && index < len(row.Cells) {
				return strings.TrimSpace(row.Cells[index].String())
			}
			return ""
		}

		name := get(1)
		if name == "" {
			result.Skipped++
			continue
		}
		price, err := ParsePrice(get(3))
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid price %q", i+1, get(3)))
			continue
		}
		categoryName := get(5)
		if categoryName == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: category is required", i+1))
			continue
		}
		productType := get(4)
		if productType == "" {
			productType = categoryName
		}

		updated := false
		err = db.Transaction(func(tx *gorm.DB) error {
			category, _, err := UpsertCategory(tx, categoryName, productType)
			if err != nil {
				return err
			}

			product := models.Product{}
			if id, err := strconv.ParseUint(get(0), 10, 64); err == nil && id > 0 {
				if err := tx.First(&product, id).Error; err == nil {
					updated = true
				} else if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
			}

			product.Name = name
			product.Description = get(2)
			product.Price = price
			product.Type = productType
			product.CategoryID = category.ID
			if image := get(6); image != "" {
				product.ImageURL = image
			}

			if updated {
				return tx.Omit("Category").Save(&product).Error
			}
			return tx.Omit("Category").Create(&product).Error
		})
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if updated {
			result.Updated++
		} else {
			result.Created++
		}
	}
	return result, nil
}

// POST /products/import (admin, multipart "file")
func ImportProductsFromExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		excelFileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is required"})
			return
		}

		file, err := excelFileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open Excel file"})
			return
		}
		defer file.Close()

		xlFile, err := xlsx.OpenReaderAt(file, excelFileHeader.Size)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse Excel file"})
			return
		}

		result, err := ImportProducts(db.WithContext(c.Request.Context()), xlFile)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":      "Import completed",
			"createdCount": result.Created,
			"updatedCount": result.Updated,
			"skippedCount": result.Skipped,
			"errors":       result.Errors,
		})
	}
}
