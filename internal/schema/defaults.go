package schema

// Default returns the police-stop registry. The column list is kept verbatim,
// including the historical "reporing_area" spelling that existing artifacts
// and queries depend on.
func Default() *Registry { return defaultRegistry }

var defaultRegistry = MustNew(
	// core
	Column{"raw_row_number", Text},
	Column{"date", Date},
	Column{"time", Time},
	Column{"location", Text},
	Column{"lat", Float},
	Column{"lng", Float},
	Column{"geocode_source", Text},

	// geography / administration
	Column{"county_name", Text},
	Column{"neighborhood", Text},
	Column{"beat", Text},
	Column{"district", Text},
	Column{"subdistrict", Text},
	Column{"division", Text},
	Column{"subdivision", Text},
	Column{"police_grid_number", Text},
	Column{"precinct", Text},
	Column{"region", Text},
	Column{"reporing_area", Text},
	Column{"sector", Text},
	Column{"subsector", Text},
	Column{"substation", Text},
	Column{"service_area", Text},
	Column{"zone", Text},

	// subject
	Column{"subject_age", Integer},
	Column{"subject_race", Text},
	Column{"subject_sex", Text},

	// officer
	Column{"officer_id_hash", Text},
	Column{"officer_age", Integer},
	Column{"officer_race", Text},
	Column{"officer_sex", Text},
	Column{"officer_years_of_service", Integer},
	Column{"officer_assignment", Text},
	Column{"department_id", Text},
	Column{"department_name", Text},
	Column{"unit", Text},

	// stop
	Column{"type", Text},
	Column{"disposition", Text},
	Column{"violation", Text},
	Column{"arrest_made", Boolean},
	Column{"citation_issued", Boolean},
	Column{"warning_issued", Boolean},
	Column{"outcome", Text},

	// search and contraband
	Column{"contraband_found", Boolean},
	Column{"contraband_drugs", Boolean},
	Column{"contraband_weapons", Boolean},
	Column{"contraband_other", Text},
	Column{"frisk_performed", Boolean},
	Column{"search_conducted", Boolean},
	Column{"search_person", Boolean},
	Column{"search_vehicle", Boolean},
	Column{"search_basis", Text},

	// reasons
	Column{"reason_for_arrest", Text},
	Column{"reason_for_frisk", Text},
	Column{"reason_for_search", Text},
	Column{"reason_for_stop", Text},

	// vehicle
	Column{"speed", Float},
	Column{"posted_speed", Float},
	Column{"vehicle_color", Text},
	Column{"vehicle_make", Text},
	Column{"vehicle_model", Text},
	Column{"vehicle_type", Text},
	Column{"vehicle_registration_state", Text},
	Column{"vehicle_year", Integer},

	// free text
	Column{"use_of_force_description", Text},
	Column{"use_of_force_reason", Text},
	Column{"notes", Text},
)
