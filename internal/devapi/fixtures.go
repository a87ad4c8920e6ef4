package devapi

import (
	"fmt"

	"github.com/abelbrown/fmconsole/internal/model"
)

var (
	companies = []struct {
		id   int
		name string
		org  string
	}{
		{1, "Northwind Facilities", "Northwind Group"},
		{2, "Contoso Property", "Contoso Holdings"},
		{3, "Fabrikam Estates", "Fabrikam Inc"},
		{4, "Tailspin Realty", "Tailspin Group"},
	}

	countryNames = []string{
		"Australia", "Brazil", "Canada", "Denmark", "Egypt", "France",
		"Germany", "India", "Japan", "Kenya", "Mexico", "Norway",
	}

	cities = []string{
		"Sydney", "São Paulo", "Toronto", "Copenhagen", "Cairo", "Lyon",
		"Hamburg", "Pune", "Osaka", "Nairobi", "Monterrey", "Bergen",
	}

	siteTypes = []string{"Corporate", "Warehouse", "Retail", "Plant"}

	towers       = []string{"Tower A", "Tower B", "Tower C"}
	noteStatuses = []string{"Paid", "Pending", "Overdue"}

	applicants = []string{
		"Asha Rao", "Ben Okafor", "Chen Wei", "Dana Levi", "Elif Kaya",
		"Farid Haddad", "Grace Mwangi", "Hiro Tanaka", "Ines Duarte",
	}
	banks        = []string{"HDFC Bank", "State Bank", "ICICI Bank"}
	loanStatuses = []string{"Submitted", "Approved", "Rejected"}

	projects = []struct {
		name, city, kind string
		towers           int
	}{
		{"Lakeview Residences", "Pune", "Residential", 4},
		{"Harbor Point", "Osaka", "Mixed Use", 2},
		{"Northgate Offices", "Toronto", "Commercial", 3},
		{"Riverside Lofts", "Lyon", "Residential", 1},
		{"Sunset Plaza", "Sydney", "Retail", 1},
		{"Maple Court", "Bergen", "Residential", 2},
	}
)

// SampleFixtures returns the lists behind the default console screens:
// headquarters, demand notes, home loans and projects (keyed), sites (keyed
// and paginated), regions (bare array) and company setups (data envelope).
func SampleFixtures() []Fixture {
	return []Fixture{
		{Path: "headquarters", Key: "headquarters", Shape: ShapeKeyed, Records: Headquarters()},
		{Path: "pms/sites/all_site_list", Key: "sites", Shape: ShapeKeyed, Records: Sites(57), Paginated: true},
		{Path: "pms/regions", Shape: ShapeArray, Records: Regions()},
		{Path: "pms/company_setups/company_index", Shape: ShapeData, Records: CompanySetups()},
		{Path: "demand_notes", Key: "demand_notes", Shape: ShapeKeyed, Records: DemandNotes(15)},
		{Path: "home_loan_requests", Key: "home_loans", Shape: ShapeKeyed, Records: HomeLoanRequests()},
		{Path: "project_details", Key: "records", Shape: ShapeKeyed, Records: Projects()},
	}
}

// Headquarters is one record per country, owned round-robin by the sample
// companies. Every fifth record is inactive.
func Headquarters() []model.Record {
	records := make([]model.Record, len(countryNames))
	for i, country := range countryNames {
		c := companies[i%len(companies)]
		records[i] = model.Record{
			"id":                i + 1,
			"name":              country + " HQ",
			"country_name":      country,
			"company_name":      c.name,
			"organization_name": c.org,
			"active":            (i+1)%5 != 0,
		}
	}
	return records
}

// Sites returns n generated sites.
func Sites(n int) []model.Record {
	records := make([]model.Record, n)
	for i := range records {
		c := companies[i%len(companies)]
		city := cities[i%len(cities)]
		records[i] = model.Record{
			"id":           1000 + i,
			"name":         fmt.Sprintf("%s %s %d", city, siteTypes[i%len(siteTypes)], i/len(cities)+1),
			"code":         fmt.Sprintf("S-%04d", i+1),
			"city":         city,
			"site_type":    siteTypes[i%len(siteTypes)],
			"company_name": c.name,
			"company":      map[string]any{"id": c.id, "name": c.name},
			"floor_area":   500 + (i*137)%9500,
			"active":       i%7 != 0,
		}
	}
	return records
}

// Regions groups the sample countries in pairs.
func Regions() []model.Record {
	records := make([]model.Record, 0, len(countryNames)/2)
	for i := 0; i+1 < len(countryNames); i += 2 {
		c := companies[(i/2)%len(companies)]
		records = append(records, model.Record{
			"id":           len(records) + 1,
			"name":         countryNames[i] + " & " + countryNames[i+1],
			"country_name": countryNames[i],
			"company_name": c.name,
		})
	}
	return records
}

// CompanySetups is one record per sample company.
func CompanySetups() []model.Record {
	records := make([]model.Record, len(companies))
	for i, c := range companies {
		records[i] = model.Record{
			"id":                c.id,
			"name":              c.name,
			"organization_name": c.org,
		}
	}
	return records
}

// DemandNotes returns n payment demands raised against flats. Amounts and
// due dates vary so sorting by either is meaningful.
func DemandNotes(n int) []model.Record {
	records := make([]model.Record, n)
	for i := range records {
		records[i] = model.Record{
			"id":          i + 1,
			"note_number": fmt.Sprintf("DN-%04d", i+1),
			"flat":        fmt.Sprintf("%c-%d", 'A'+rune(i%3), 101+i),
			"tower":       towers[i%len(towers)],
			"amount":      25000 + (i*7919)%50000,
			"due_date":    fmt.Sprintf("2026-%02d-%02d", i%12+1, i%28+1),
			"status":      noteStatuses[i%len(noteStatuses)],
		}
	}
	return records
}

// HomeLoanRequests is one request per sample applicant.
func HomeLoanRequests() []model.Record {
	records := make([]model.Record, len(applicants))
	for i, name := range applicants {
		records[i] = model.Record{
			"id":             i + 1,
			"applicant_name": name,
			"flat":           fmt.Sprintf("%c-%d", 'A'+rune(i%3), 201+i),
			"bank_name":      banks[i%len(banks)],
			"loan_amount":    3000000 + i*250000,
			"status":         loanStatuses[i%len(loanStatuses)],
		}
	}
	return records
}

// Projects returns the sample property projects.
func Projects() []model.Record {
	records := make([]model.Record, len(projects))
	for i, p := range projects {
		status := "Under Construction"
		if i%2 == 0 {
			status = "Completed"
		}
		records[i] = model.Record{
			"id":            i + 1,
			"project_name":  p.name,
			"city":          p.city,
			"building_type": p.kind,
			"towers":        p.towers,
			"status":        status,
		}
	}
	return records
}
