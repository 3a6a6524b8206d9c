package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Özet"
	ordersSheet   = "Siparişler"
	productsSheet = "Ürünler"

	dateLayout = "2006-01-02 15:04"
)

// WriteWorkbook renders sales as an XLSX workbook with summary, orders and products sheets.
func WriteWorkbook(w io.Writer, sales *Sales) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	for _, name := range []string{ordersSheet, productsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeSummary(f, sales, header); err != nil {
		return fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeOrders(f, sales, header); err != nil {
		return fmt.Errorf("orders sheet: %w", err)
	}
	if err := writeProducts(f, sales, header); err != nil {
		return fmt.Errorf("products sheet: %w", err)
	}

	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeSummary(f *excelize.File, sales *Sales, header int) error {
	location := "Tümü"
	if sales.LocationID != nil {
		location = *sales.LocationID
	}

	rows := [][]interface{}{
		{"Başlangıç", sales.From.Format(dateLayout)},
		{"Bitiş", sales.To.Format(dateLayout)},
		{"Şube", location},
		{"Sipariş sayısı", len(sales.Orders)},
		{"Ciro (ödenen)", sales.Revenue},
		{},
		{"Durum", "Adet", "Toplam"},
	}
	for _, st := range sales.ByStatus {
		rows = append(rows, []interface{}{string(st.Status), st.Count, st.Total})
	}
	statusHeader := len(rows) - len(sales.ByStatus)

	rows = append(rows, []interface{}{}, []interface{}{"Ödeme tipi", "Adet", "Tutar"})
	paymentHeader := len(rows)
	for _, pt := range sales.ByPayment {
		rows = append(rows, []interface{}{string(pt.Type), pt.Count, pt.Amount})
	}

	for i, r := range rows {
		if err := setRow(f, summarySheet, i+1, r...); err != nil {
			return err
		}
	}
	for _, row := range []int{statusHeader, paymentHeader} {
		if err := f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("C%d", row), header); err != nil {
			return err
		}
	}
	return f.SetColWidth(summarySheet, "A", "C", 20)
}

func writeOrders(f *excelize.File, sales *Sales, header int) error {
	if err := setRow(f, ordersSheet, 1, "Tarih", "No", "Masa", "Durum", "Ara toplam", "Vergi", "Toplam", "Sipariş ID"); err != nil {
		return err
	}
	if err := f.SetCellStyle(ordersSheet, "A1", "H1", header); err != nil {
		return err
	}
	for i, o := range sales.Orders {
		table := ""
		if o.Table != nil {
			table = *o.Table
		}
		if err := setRow(f, ordersSheet, i+2,
			o.CreatedAt.Format(dateLayout), o.Number, table, string(o.Status),
			o.Subtotal, o.Tax, o.Total, o.ID); err != nil {
			return err
		}
	}
	return f.SetColWidth(ordersSheet, "A", "H", 16)
}

func writeProducts(f *excelize.File, sales *Sales, header int) error {
	if err := setRow(f, productsSheet, 1, "Ürün", "Adet", "Ciro", "Ürün ID"); err != nil {
		return err
	}
	if err := f.SetCellStyle(productsSheet, "A1", "D1", header); err != nil {
		return err
	}
	for i, p := range sales.Products {
		if err := setRow(f, productsSheet, i+2, p.Name, p.Qty, p.Revenue, p.ProductID); err != nil {
			return err
		}
	}
	return f.SetColWidth(productsSheet, "A", "D", 20)
}
