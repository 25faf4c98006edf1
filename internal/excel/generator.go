package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/freight-contracts/internal/model"
)

const maxSheetName = 31

// Generator renders the tariff sheet of a contract: a summary sheet and one
// sheet per supplementary agreement.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(contract model.Contract) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	summarySheet := "Договор"
	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	g.writeSummary(file, summarySheet, contract)

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, agreement := range contract.Agreements {
		sheetName := buildSheetName(agreement, usedNames)
		usedNames[sheetName] = struct{}{}

		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		g.writeAgreement(file, sheetName, agreement)
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, contract model.Contract) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Номер договора")
	set("B1", contract.ContractNumber)
	set("A2", "Заказчик")
	set("B2", contract.Customer.Name)
	set("A3", "Экспедитор")
	set("B3", contract.Forwarder.Name)
	set("A4", "Начало действия")
	set("B4", formatDatePtr(contract.StartDate))
	set("A5", "Окончание действия")
	set("B5", formatDatePtr(contract.EndDate))
	set("A6", "Статус")
	set("B6", string(contract.Status))

	tableRow := 8
	headers := []string{"Доп. соглашение", "Статус", "Предложено", "Действует с", "Действует по", "Тарифов"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, agreement := range contract.Agreements {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), agreement.AgreementNumber)
		set(fmt.Sprintf("B%d", row), statusLabel(agreement.Status))
		set(fmt.Sprintf("C%d", row), sideLabel(agreement.ProposedBy))
		set(fmt.Sprintf("D%d", row), formatDatePtr(agreement.ValidFrom))
		set(fmt.Sprintf("E%d", row), formatDatePtr(agreement.ValidTo))
		set(fmt.Sprintf("F%d", row), len(agreement.Tariffs))
	}

	_ = file.SetColWidth(sheet, "A", "A", 24)
	_ = file.SetColWidth(sheet, "B", "B", 40)
	_ = file.SetColWidth(sheet, "C", "F", 16)
}

func (g *Generator) writeAgreement(file *excelize.File, sheet string, agreement model.SupplementaryAgreement) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Доп. соглашение")
	set("B1", agreement.AgreementNumber)
	set("A2", "Статус")
	set("B2", statusLabel(agreement.Status))
	set("A3", "Действует с")
	set("B3", formatDatePtr(agreement.ValidFrom))
	set("A4", "Действует по")
	set("B4", formatDatePtr(agreement.ValidTo))

	tableRow := 6
	headers := []string{"Откуда", "Куда", "Тип ТС", "Цена", "Активен"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, tariff := range agreement.Tariffs {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), cityName(tariff.OriginCity))
		set(fmt.Sprintf("B%d", row), cityName(tariff.DestinationCity))
		set(fmt.Sprintf("C%d", row), vehicleLabel(tariff.VehicleType))
		set(fmt.Sprintf("D%d", row), tariff.Price)
		set(fmt.Sprintf("E%d", row), yesNo(tariff.IsActive))
	}

	_ = file.SetColWidth(sheet, "A", "B", 28)
	_ = file.SetColWidth(sheet, "C", "C", 18)
	_ = file.SetColWidth(sheet, "D", "E", 14)
}

func buildSheetName(agreement model.SupplementaryAgreement, used map[string]struct{}) string {
	base := strings.TrimSpace(agreement.AgreementNumber)
	if base == "" {
		base = agreement.ID.String()
	}
	base = truncate(sanitizeSheetName("ДС "+base), maxSheetName)

	nameCandidate := base
	counter := 2
	for {
		if _, exists := used[nameCandidate]; !exists {
			return nameCandidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		nameCandidate = truncate(base, maxSheetName-len(suffix)) + suffix
		counter++
	}
}

func sanitizeSheetName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Лист"
	}

	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = strings.TrimSpace(replacer.Replace(value))
	if value == "" {
		return "Лист"
	}
	return value
}

// truncate cuts to limit characters; sheet name limits count runes, not bytes.
func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func statusLabel(status model.AgreementStatus) string {
	switch status {
	case model.AgreementStatusDraft:
		return "Черновик"
	case model.AgreementStatusPending:
		return "На согласовании"
	case model.AgreementStatusApproved:
		return "Согласовано"
	case model.AgreementStatusRejected:
		return "Отклонено"
	default:
		return string(status)
	}
}

func sideLabel(side model.PartySide) string {
	switch side {
	case model.PartySideForwarder:
		return "Экспедитор"
	case model.PartySideCustomer:
		return "Заказчик"
	default:
		return string(side)
	}
}

func vehicleLabel(value *string) string {
	if value == nil {
		return "Любой"
	}
	return *value
}

func cityName(city *model.City) string {
	if city == nil {
		return ""
	}
	return city.Name
}

func yesNo(value bool) string {
	if value {
		return "Да"
	}
	return "Нет"
}

func formatDatePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
