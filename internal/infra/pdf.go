package infra

// pdf.go — order summary generation using go-pdf/fpdf.
// The summary accompanies despacho/entrega notification emails: header with
// the pedido identifiers, the three status axes, the item table and the
// derived amounts. Saved to storagePath/pedido_{id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"

	"pedidos/internal/model"

	"github.com/go-pdf/fpdf"
)

// GeneratePedidoPDF writes the order summary for a pedido and returns the
// absolute path of the generated file. storagePath is created if needed.
func GeneratePedidoPDF(p *model.Pedido, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("pedido_%s.pdf", p.ID)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, "Resumen de Pedido", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, p.ID.String(), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// ── Identificación ───────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	if p.Cliente != nil {
		pdf.CellFormat(contentW, 5, "Cliente: "+p.Cliente.RazonSocial, "", 1, "L", false, 0, "")
	}
	if p.CodigoOrigen != nil {
		pdf.CellFormat(contentW, 5, "Código de origen: "+*p.CodigoOrigen, "", 1, "L", false, 0, "")
	}
	if p.NumeroPedidoSAP != nil {
		pdf.CellFormat(contentW, 5, "Pedido SAP: "+*p.NumeroPedidoSAP, "", 1, "L", false, 0, "")
	}
	if p.NumeroFacturaSAP != nil {
		pdf.CellFormat(contentW, 5, "Factura SAP: "+*p.NumeroFacturaSAP, "", 1, "L", false, 0, "")
	} else if p.FacturaManual {
		pdf.CellFormat(contentW, 5, "Factura: manual", "", 1, "L", false, 0, "")
	}

	logistico := "SIN_ENVIAR"
	if p.EstadoLogistico != nil {
		logistico = string(*p.EstadoLogistico)
	}
	estado := fmt.Sprintf("Estado: %s / crédito %s / logística %s",
		p.EstadoGeneral, p.EstadoCredito, logistico)
	pdf.CellFormat(contentW, 5, estado, "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.46 // product
	col2 := contentW * 0.14 // qty
	col3 := contentW * 0.20 // unit price
	col4 := contentW * 0.20 // subtotal

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1, 6, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 6, "Precio", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range p.Items {
		nombre := ""
		if item.Producto != nil {
			nombre = item.Producto.Nombre
		}
		if len(nombre) > 40 {
			nombre = nombre[:39] + "…"
		}
		pdf.CellFormat(col1, 6, nombre, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 6, fmt.Sprintf("x%d", item.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 6, "$"+item.PrecioUnitario.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 6, "$"+item.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Montos ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(col1+col2+col3, 6, "Neto:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "$"+p.MontoNeto.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(col1+col2+col3, 6, "IVA (19%):", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "$"+p.MontoImpuestos.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(col1+col2+col3, 7, "TOTAL:", "", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 7, "$"+p.MontoTotal.StringFixed(2), "", 1, "R", false, 0, "")

	// ── Historial ────────────────────────────────────────────────────────────
	pdf.Ln(5)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW, 6, "Historial", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	for _, h := range p.Historial {
		linea := fmt.Sprintf("%s  [%s]  %s", h.FechaEvento.Format("02/01/2006 15:04"), h.Tipo, h.EstadoNuevo)
		if h.FechaEventoFin != nil {
			linea += "  (cierre " + h.FechaEventoFin.Format("02/01/2006 15:04") + ")"
		}
		pdf.CellFormat(contentW, 5, linea, "", 1, "L", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}

	return filePath, nil
}
