package services

// Entity slugs used in routes and task payloads.
const (
	BranchEntity           = "branches"
	DealerEntity           = "dealers"
	EquipmentEntity        = "equipment"
	CustomerEntity         = "customers"
	AMCContractEntity      = "amc-contracts"
	PendingComplaintEntity = "pending-complaints"
)

// BranchConfig matches branches on their lower-cased name.
func BranchConfig() *EntityConfig {
	return &EntityConfig{
		Name:    "Branch",
		Slug:    BranchEntity,
		Table:   "branches",
		KeyExpr: "LOWER(name)",
		Synonyms: []SynonymSet{
			{Field: "name", Headers: []string{"Branch Name", "Branch", "Name", "branchname"}},
			{Field: "state", Headers: []string{"State", "State Name", "Region State"}},
			{Field: "city", Headers: []string{"City", "City Name", "Location"}},
			{Field: "branchShortCode", Headers: []string{"Branch Short Code", "Short Code", "Branch Code", "Code"}},
			{Field: "status", Headers: []string{"Status", "Branch Status"}},
		},
		Fields: []FieldSpec{
			{Name: "name", MaxLen: 100},
			{Name: "state", MaxLen: 100},
			{Name: "city", MaxLen: 100},
			{Name: "branchShortCode", Column: "branch_short_code", MaxLen: 20},
			{Name: "status", MaxLen: 20},
		},
		Required:        []string{"name", "state", "branchShortCode"},
		RequiredHeaders: []string{"name", "state", "branchShortCode"},
		KeyFields:       []string{"name"},
		KeyLabel:        "Branch Name",
		DisplayFields:   []string{"name", "branchShortCode"},
	}
}

// DealerConfig carries multi-value state and city columns and a composite
// person-responsible list built from two source columns.
func DealerConfig() *EntityConfig {
	return &EntityConfig{
		Name:    "Dealer",
		Slug:    DealerEntity,
		Table:   "dealers",
		KeyExpr: "LOWER(dealercode)",
		Synonyms: []SynonymSet{
			{Field: "name", Headers: []string{"Dealer Name", "Name", "Dealer"}},
			{Field: "dealercode", Headers: []string{"Dealer Code", "Dealer Id", "Code"}},
			{Field: "email", Headers: []string{"Email", "Email Id", "E-mail", "Mail"}},
			{Field: "state", Headers: []string{"State", "States"}},
			{Field: "city", Headers: []string{"City", "Cities"}},
			{Field: "address", Headers: []string{"Address", "Dealer Address"}},
			{Field: "pincode", Headers: []string{"Pincode", "Pin Code", "Postal Code", "Zip"}},
			{Field: "personresponsiblename", Headers: []string{"Person Responsible", "Person Responsible Name", "Contact Person"}},
			{Field: "personresponsibleid", Headers: []string{"Employee Id", "Employee Code", "Person Responsible Id", "Emp Id"}},
			{Field: "status", Headers: []string{"Status", "Dealer Status"}},
		},
		Fields: []FieldSpec{
			{Name: "name", MaxLen: 100},
			{Name: "dealercode", MaxLen: 50},
			{Name: "email", MaxLen: 100},
			{Name: "state", Kind: ArrayField, MaxLen: 100},
			{Name: "city", Kind: ArrayField, MaxLen: 100},
			{Name: "address", MaxLen: 500},
			{Name: "pincode", MaxLen: 10},
			{Name: "personresponsible", Column: "person_responsible", Kind: PersonsField},
			{Name: "status", MaxLen: 20},
		},
		Required:             []string{"name", "dealercode", "state", "city"},
		RequiredHeaders:      []string{"name", "dealercode", "state", "city"},
		KeyFields:            []string{"dealercode"},
		KeyLabel:             "Dealer Code",
		DisplayFields:        []string{"dealercode", "name"},
		NestedDocuments:      true,
		MaxConcurrentBatches: 2,
		Composite: &CompositeSpec{
			Field:      "personresponsible",
			NameSource: "personresponsiblename",
			IDSource:   "personresponsibleid",
			IDPrefix:   "EMP",
		},
	}
}

// EquipmentConfig reports unmapped headers and carries the warranty ranges
// that feed PM schedule generation.
func EquipmentConfig() *EntityConfig {
	return &EntityConfig{
		Name:    "Equipment",
		Slug:    EquipmentEntity,
		Table:   "equipment",
		KeyExpr: "LOWER(serialnumber)",
		Synonyms: []SynonymSet{
			{Field: "serialnumber", Headers: []string{"Serial Number", "Serial No", "Serial", "SrNo", "Equipment Serial"}},
			{Field: "materialcode", Headers: []string{"Material Code", "Material", "Part No", "Material Number"}},
			{Field: "materialdescription", Headers: []string{"Material Description", "Description", "Material Desc"}},
			{Field: "currentcustomer", Headers: []string{"Current Customer", "Customer Code", "Customer"}},
			{Field: "endcustomer", Headers: []string{"End Customer", "End Customer Code"}},
			{Field: "custWarrantystartdate", Headers: []string{"Cust Warranty Start Date", "Customer Warranty Start Date", "Warranty Start Date", "Warranty Start"}},
			{Field: "custWarrantyenddate", Headers: []string{"Cust Warranty End Date", "Customer Warranty End Date", "Warranty End Date", "Warranty End"}},
			{Field: "dealerwarrantystartdate", Headers: []string{"Dealer Warranty Start Date", "Extended Warranty Start Date", "Dealer Warranty Start"}},
			{Field: "dealerwarrantyenddate", Headers: []string{"Dealer Warranty End Date", "Extended Warranty End Date", "Dealer Warranty End"}},
			{Field: "dealer", Headers: []string{"Dealer", "Dealer Code"}},
			{Field: "palnumber", Headers: []string{"PAL Number", "Pal No"}},
			{Field: "installationreportno", Headers: []string{"Installation Report No", "Installation Report Number", "IR No"}},
			{Field: "status", Headers: []string{"Status", "Equipment Status"}},
		},
		Fields: []FieldSpec{
			{Name: "serialnumber", MaxLen: 50},
			{Name: "materialcode", MaxLen: 50},
			{Name: "materialdescription", MaxLen: 500},
			{Name: "currentcustomer", MaxLen: 50},
			{Name: "endcustomer", MaxLen: 50},
			{Name: "custWarrantystartdate", Column: "cust_warrantystartdate", Kind: DateField},
			{Name: "custWarrantyenddate", Column: "cust_warrantyenddate", Kind: DateField},
			{Name: "dealerwarrantystartdate", Kind: DateField},
			{Name: "dealerwarrantyenddate", Kind: DateField},
			{Name: "dealer", MaxLen: 50},
			{Name: "palnumber", MaxLen: 50},
			{Name: "installationreportno", MaxLen: 50},
			{Name: "status", MaxLen: 20},
		},
		Required:        []string{"serialnumber", "materialcode", "materialdescription", "currentcustomer"},
		RequiredHeaders: []string{"serialnumber", "materialcode", "materialdescription", "currentcustomer"},
		KeyFields:       []string{"serialnumber"},
		KeyLabel:        "Serial Number",
		DisplayFields:   []string{"serialnumber", "materialcode"},
		NestedDocuments: true,
		ReportUnmapped:  true,
	}
}

// CustomerConfig matches customers on their customer code.
func CustomerConfig() *EntityConfig {
	return &EntityConfig{
		Name:    "Customer",
		Slug:    CustomerEntity,
		Table:   "customers",
		KeyExpr: "LOWER(customercodeid)",
		Synonyms: []SynonymSet{
			{Field: "customercodeid", Headers: []string{"Customer Code", "Customer Code Id", "Customer Id", "Cust Code"}},
			{Field: "customername", Headers: []string{"Customer Name", "Name", "Customer"}},
			{Field: "hospitalname", Headers: []string{"Hospital Name", "Hospital"}},
			{Field: "street", Headers: []string{"Street", "Address", "Street Address"}},
			{Field: "city", Headers: []string{"City"}},
			{Field: "postalcode", Headers: []string{"Postal Code", "Pincode", "Pin Code", "Zip"}},
			{Field: "district", Headers: []string{"District"}},
			{Field: "state", Headers: []string{"State", "Region Name"}},
			{Field: "region", Headers: []string{"Region", "Zone"}},
			{Field: "country", Headers: []string{"Country"}},
			{Field: "telephone", Headers: []string{"Telephone", "Phone", "Mobile", "Contact Number"}},
			{Field: "taxnumber1", Headers: []string{"Tax Number 1", "Tax No 1", "GST Number"}},
			{Field: "taxnumber2", Headers: []string{"Tax Number 2", "Tax No 2", "PAN Number"}},
			{Field: "email", Headers: []string{"Email", "Email Id", "E-mail"}},
			{Field: "customertype", Headers: []string{"Customer Type", "Type"}},
			{Field: "status", Headers: []string{"Status", "Customer Status"}},
		},
		Fields: []FieldSpec{
			{Name: "customercodeid", MaxLen: 50},
			{Name: "customername", MaxLen: 200},
			{Name: "hospitalname", MaxLen: 200},
			{Name: "street", MaxLen: 500},
			{Name: "city", MaxLen: 100},
			{Name: "postalcode", MaxLen: 10},
			{Name: "district", MaxLen: 100},
			{Name: "state", MaxLen: 100},
			{Name: "region", MaxLen: 100},
			{Name: "country", MaxLen: 100},
			{Name: "telephone", MaxLen: 20},
			{Name: "taxnumber1", MaxLen: 50},
			{Name: "taxnumber2", MaxLen: 50},
			{Name: "email", MaxLen: 100},
			{Name: "customertype", MaxLen: 50},
			{Name: "status", MaxLen: 20},
		},
		Required:        []string{"customercodeid", "customername", "city", "postalcode"},
		RequiredHeaders: []string{"customercodeid", "customername", "city", "postalcode"},
		KeyFields:       []string{"customercodeid"},
		KeyLabel:        "Customer Code",
		DisplayFields:   []string{"customercodeid", "customername"},
	}
}

// AMCContractConfig keys contracts on sales document plus serial number.
func AMCContractConfig() *EntityConfig {
	return &EntityConfig{
		Name:    "AMC Contract",
		Slug:    AMCContractEntity,
		Table:   "amc_contracts",
		KeyExpr: "LOWER(salesdoc) || '|' || LOWER(serialnumber)",
		Synonyms: []SynonymSet{
			{Field: "salesdoc", Headers: []string{"Sales Doc", "Sales Document", "Sales Doc No", "Contract Number"}},
			{Field: "satypeZDRC_ZDRN", Headers: []string{"SA Type", "SA Type ZDRC/ZDRN", "Contract Type"}},
			{Field: "startdate", Headers: []string{"Start Date", "Contract Start Date", "From Date"}},
			{Field: "enddate", Headers: []string{"End Date", "Contract End Date", "To Date"}},
			{Field: "serialnumber", Headers: []string{"Serial Number", "Serial No", "Serial"}},
			{Field: "materialcode", Headers: []string{"Material Code", "Material"}},
			{Field: "contractvalue", Headers: []string{"Contract Value", "Value", "Amount"}},
			{Field: "status", Headers: []string{"Status", "Contract Status"}},
		},
		Fields: []FieldSpec{
			{Name: "salesdoc", MaxLen: 50},
			{Name: "satypeZDRC_ZDRN", Column: "satype_zdrc_zdrn", MaxLen: 10},
			{Name: "startdate", Kind: DateField},
			{Name: "enddate", Kind: DateField},
			{Name: "serialnumber", MaxLen: 50},
			{Name: "materialcode", MaxLen: 50},
			{Name: "contractvalue", Kind: DecimalField},
			{Name: "status", MaxLen: 20},
		},
		Required:        []string{"salesdoc", "serialnumber", "startdate", "enddate", "satypeZDRC_ZDRN"},
		RequiredHeaders: []string{"salesdoc", "serialnumber", "startdate", "enddate", "satypeZDRC_ZDRN"},
		KeyFields:       []string{"salesdoc", "serialnumber"},
		KeyLabel:        "Sales Doc and Serial Number",
		DisplayFields:   []string{"salesdoc", "serialnumber"},
	}
}

// PendingComplaintConfig matches complaints on their notification id.
func PendingComplaintConfig() *EntityConfig {
	return &EntityConfig{
		Name:    "Pending Complaint",
		Slug:    PendingComplaintEntity,
		Table:   "pending_complaints",
		KeyExpr: "LOWER(notification_complaintid)",
		Synonyms: []SynonymSet{
			{Field: "notification_complaintid", Headers: []string{"Notification", "Notification No", "Complaint Id", "Notification Complaint Id"}},
			{Field: "notificationtype", Headers: []string{"Notification Type", "Complaint Type"}},
			{Field: "notificationdate", Headers: []string{"Notification Date", "Complaint Date", "Created On"}},
			{Field: "userstatus", Headers: []string{"User Status"}},
			{Field: "materialdescription", Headers: []string{"Material Description", "Description"}},
			{Field: "serialnumber", Headers: []string{"Serial Number", "Serial No", "Serial"}},
			{Field: "devicedata", Headers: []string{"Device Data"}},
			{Field: "salesoffice", Headers: []string{"Sales Office"}},
			{Field: "materialcode", Headers: []string{"Material Code", "Material"}},
			{Field: "reportedproblem", Headers: []string{"Reported Problem", "Problem", "Problem Description"}},
			{Field: "dealercode", Headers: []string{"Dealer Code", "Dealer"}},
			{Field: "customercode", Headers: []string{"Customer Code", "Customer"}},
			{Field: "partnerresponsible", Headers: []string{"Partner Responsible", "Partner Resp"}},
			{Field: "breakdown", Headers: []string{"Breakdown", "Break Down"}},
			{Field: "status", Headers: []string{"Status", "Complaint Status"}},
		},
		Fields: []FieldSpec{
			{Name: "notification_complaintid", MaxLen: 50},
			{Name: "notificationtype", MaxLen: 20},
			{Name: "notificationdate", Kind: DateField},
			{Name: "userstatus", MaxLen: 50},
			{Name: "materialdescription", MaxLen: 500},
			{Name: "serialnumber", MaxLen: 50},
			{Name: "devicedata", MaxLen: 500},
			{Name: "salesoffice", MaxLen: 50},
			{Name: "materialcode", MaxLen: 50},
			{Name: "reportedproblem", MaxLen: 1000},
			{Name: "dealercode", MaxLen: 50},
			{Name: "customercode", MaxLen: 50},
			{Name: "partnerresponsible", MaxLen: 100},
			{Name: "breakdown", MaxLen: 20},
			{Name: "status", MaxLen: 20},
		},
		Required:        []string{"notification_complaintid", "serialnumber"},
		RequiredHeaders: []string{"notification_complaintid", "serialnumber"},
		KeyFields:       []string{"notification_complaintid"},
		KeyLabel:        "Notification Id",
		DisplayFields:   []string{"notification_complaintid", "serialnumber"},
		DefaultStatus:   "Open",
	}
}

// AllEntityConfigs returns a fresh configuration for every pipeline.
func AllEntityConfigs() []*EntityConfig {
	return []*EntityConfig{
		BranchConfig(),
		DealerConfig(),
		EquipmentConfig(),
		CustomerConfig(),
		AMCContractConfig(),
		PendingComplaintConfig(),
	}
}
