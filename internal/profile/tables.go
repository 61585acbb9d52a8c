package profile

// typeTable maps source field names of one profile type to destination keys.
type typeTable struct {
	Type   Type
	Fields map[string][]string
}

// one is shorthand for a single destination key.
func one(k string) []string { return []string{k} }

// mappingTables is declared in classification tie-break order.
var mappingTables = []typeTable{
	{Type: TypePrinter, Fields: printerFields},
	{Type: TypePrint, Fields: printFields},
	{Type: TypeFilament, Fields: filamentFields},
}

// KnownTypes returns the classifiable types in declaration order.
func KnownTypes() []Type {
	out := make([]Type, len(mappingTables))
	for i, t := range mappingTables {
		out[i] = t.Type
	}
	return out
}

// DestinationKeys returns the destination keys of key for typ, or nil when
// the field is not mapped.
func DestinationKeys(typ Type, key string) []string {
	return tableFor(typ)[key]
}

var printerFields = map[string][]string{
	"bed_custom_model":                    one("bed_custom_model"),
	"bed_custom_texture":                  one("bed_custom_texture"),
	"bed_shape":                           one("printable_area"),
	"before_layer_gcode":                  one("before_layer_change_gcode"),
	"default_filament_profile":            one("default_filament_profile"),
	"default_print_profile":               one("default_print_profile"),
	"deretract_speed":                     one("deretraction_speed"),
	"end_gcode":                           one("machine_end_gcode"),
	"extruder_colour":                     one("extruder_colour"),
	"extruder_offset":                     one("extruder_offset"),
	"gcode_flavor":                        one("gcode_flavor"),
	"host_type":                           one("host_type"),
	"inherits":                            one("inherits"),
	"layer_gcode":                         one("layer_change_gcode"),
	"machine_max_acceleration_e":          one("machine_max_acceleration_e"),
	"machine_max_acceleration_extruding":  one("machine_max_acceleration_extruding"),
	"machine_max_acceleration_retracting": one("machine_max_acceleration_retracting"),
	"machine_max_acceleration_travel":     one("machine_max_acceleration_travel"),
	"machine_max_acceleration_x":          one("machine_max_acceleration_x"),
	"machine_max_acceleration_y":          one("machine_max_acceleration_y"),
	"machine_max_acceleration_z":          one("machine_max_acceleration_z"),
	"machine_max_feedrate_e":              one("machine_max_speed_e"),
	"machine_max_feedrate_x":              one("machine_max_speed_x"),
	"machine_max_feedrate_y":              one("machine_max_speed_y"),
	"machine_max_feedrate_z":              one("machine_max_speed_z"),
	"machine_max_jerk_e":                  one("machine_max_jerk_e"),
	"machine_max_jerk_x":                  one("machine_max_jerk_x"),
	"machine_max_jerk_y":                  one("machine_max_jerk_y"),
	"machine_max_jerk_z":                  one("machine_max_jerk_z"),
	"machine_min_extruding_rate":          one("machine_min_extruding_rate"),
	"machine_min_travel_rate":             one("machine_min_travel_rate"),
	"max_layer_height":                    one("max_layer_height"),
	"max_print_height":                    one("printable_height"),
	"min_layer_height":                    one("min_layer_height"),
	"nozzle_diameter":                     one("nozzle_diameter"),
	"pause_print_gcode":                   one("machine_pause_gcode"),
	"print_host":                          one("print_host"),
	"printer_model":                       one("printer_model"),
	"printer_notes":                       one("printer_notes"),
	"printer_settings_id":                 one("printer_settings_id"),
	"printer_technology":                  one("printer_technology"),
	"printer_variant":                     one("printer_variant"),
	"printhost_apikey":                    one("printhost_apikey"),
	"printhost_cafile":                    one("printhost_cafile"),
	"profile_name":                        one("name"),
	"retract_before_travel":               one("retraction_minimum_travel"),
	"retract_before_wipe":                 one("retract_before_wipe"),
	"retract_layer_change":                one("retract_when_changing_layer"),
	"retract_length":                      one("retraction_length"),
	"retract_length_toolchange":           one("retract_length_toolchange"),
	"retract_lift":                        one("z_hop"),
	"retract_lift_above":                  one("retract_lift_above"),
	"retract_lift_below":                  one("retract_lift_below"),
	"retract_lift_top":                    one("retract_lift_enforce"),
	"retract_restart_extra":               one("retract_restart_extra"),
	"retract_restart_extra_toolchange":    one("retract_restart_extra_toolchange"),
	"retract_speed":                       one("retraction_speed"),
	"silent_mode":                         one("silent_mode"),
	"single_extruder_multi_material":      one("single_extruder_multi_material"),
	"start_gcode":                         one("machine_start_gcode"),
	"template_custom_gcode":               one("template_custom_gcode"),
	"thumbnails":                          one("thumbnails"),
	"thumbnails_format":                   one("thumbnails_format"),
	"toolchange_gcode":                    one("change_filament_gcode"),
	"use_firmware_retraction":             one("use_firmware_retraction"),
	"use_relative_e_distances":            one("use_relative_e_distances"),
	"wipe":                                one("wipe"),
	"z_offset":                            one("z_offset"),
}

var printFields = map[string][]string{
	"avoid_crossing_perimeters":                one("reduce_crossing_wall"),
	"bottom_fill_pattern":                      one("bottom_surface_pattern"),
	"bottom_solid_layers":                      one("bottom_shell_layers"),
	"bottom_solid_min_thickness":               one("bottom_shell_thickness"),
	"bridge_acceleration":                      one("bridge_acceleration"),
	"bridge_angle":                             one("bridge_angle"),
	"bridge_flow_ratio":                        one("bridge_flow"),
	"bridge_speed":                             one("bridge_speed"),
	"brim_separation":                          one("brim_object_gap"),
	"brim_type":                                one("brim_type"),
	"brim_width":                               one("brim_width"),
	"compatible_printers":                      one("compatible_printers"),
	"compatible_printers_condition":            one("compatible_printers_condition"),
	"default_acceleration":                     one("default_acceleration"),
	"dont_support_bridges":                     one("bridge_no_support"),
	"draft_shield":                             one("draft_shield"),
	"elefant_foot_compensation":                one("elefant_foot_compensation"),
	"ensure_vertical_shell_thickness":          one("ensure_vertical_shell_thickness"),
	"external_perimeter_extrusion_width":       one("outer_wall_line_width"),
	"external_perimeter_speed":                 one("outer_wall_speed"),
	"extra_perimeters_on_overhangs":            one("extra_perimeters_on_overhangs"),
	"extrusion_width":                          one("line_width"),
	"fill_angle":                               one("infill_direction"),
	"fill_density":                             one("sparse_infill_density"),
	"fill_pattern":                             one("sparse_infill_pattern"),
	"fill_top_flow_ratio":                      one("top_solid_infill_flow_ratio"),
	"first_layer_acceleration":                 one("initial_layer_acceleration"),
	"first_layer_extrusion_width":              one("initial_layer_line_width"),
	"first_layer_flow_ratio":                   one("initial_layer_flow_ratio"),
	"first_layer_height":                       one("initial_layer_print_height"),
	"first_layer_speed":                        one("initial_layer_speed"),
	"fuzzy_skin":                               one("fuzzy_skin"),
	"fuzzy_skin_point_dist":                    one("fuzzy_skin_point_distance"),
	"fuzzy_skin_thickness":                     one("fuzzy_skin_thickness"),
	"gap_fill_speed":                           one("gap_infill_speed"),
	"gcode_comments":                           one("gcode_comments"),
	"gcode_label_objects":                      one("gcode_label_objects"),
	"infill_acceleration":                      one("sparse_infill_acceleration"),
	"infill_anchor":                            one("sparse_infill_anchor"),
	"infill_anchor_max":                        one("sparse_infill_anchor_max"),
	"infill_every_layers":                      one("infill_combination"),
	"infill_extrusion_width":                   one("sparse_infill_line_width"),
	"infill_first":                             one("is_infill_first"),
	"infill_overlap":                           one("infill_wall_overlap"),
	"infill_speed":                             one("sparse_infill_speed"),
	"inherits":                                 one("inherits"),
	"interface_shells":                         one("interface_shells"),
	"ironing_flowrate":                         one("ironing_flow"),
	"ironing_spacing":                          one("ironing_spacing"),
	"ironing_speed":                            one("ironing_speed"),
	"layer_height":                             one("layer_height"),
	"notes":                                    one("notes"),
	"only_one_perimeter_top":                   one("only_one_wall_top"),
	"ooze_prevention":                          one("ooze_prevention"),
	"output_filename_format":                   one("filename_format"),
	"overhangs":                                one("detect_overhang_wall"),
	"perimeter_acceleration":                   one("inner_wall_acceleration"),
	"perimeter_extrusion_width":                one("inner_wall_line_width"),
	"perimeter_speed":                          one("inner_wall_speed"),
	"perimeters":                               one("wall_loops"),
	"post_process":                             one("post_process"),
	"print_settings_id":                        one("print_settings_id"),
	"profile_name":                             one("name"),
	"raft_contact_distance":                    one("raft_contact_distance"),
	"raft_layers":                              one("raft_layers"),
	"seam_position":                            one("seam_position"),
	"skirt_distance":                           one("skirt_distance"),
	"skirt_height":                             one("skirt_height"),
	"skirts":                                   one("skirt_loops"),
	"slice_closing_radius":                     one("slice_closing_radius"),
	"small_perimeter_min_length":               one("small_perimeter_threshold"),
	"small_perimeter_speed":                    one("small_perimeter_speed"),
	"solid_fill_pattern":                       one("internal_solid_infill_pattern"),
	"solid_infill_below_area":                  one("minimum_sparse_infill_area"),
	"solid_infill_extrusion_width":             one("internal_solid_infill_line_width"),
	"solid_infill_speed":                       one("internal_solid_infill_speed"),
	"spiral_vase":                              one("spiral_mode"),
	"standby_temperature_delta":                one("standby_temperature_delta"),
	"support_material":                         one("enable_support"),
	"support_material_angle":                   one("support_angle"),
	"support_material_bottom_contact_distance": one("support_bottom_z_distance"),
	"support_material_bottom_interface_layers": one("support_interface_bottom_layers"),
	"support_material_buildplate_only":         one("support_on_build_plate_only"),
	"support_material_contact_distance":        one("support_top_z_distance"),
	"support_material_extrusion_width":         one("support_line_width"),
	"support_material_interface_layers":        one("support_interface_top_layers"),
	"support_material_interface_pattern":       one("support_interface_pattern"),
	"support_material_interface_spacing":       one("support_interface_spacing"),
	"support_material_interface_speed":         one("support_interface_speed"),
	"support_material_layer_height":            one("independent_support_layer_height"),
	"support_material_pattern":                 one("support_base_pattern"),
	"support_material_spacing":                 one("support_base_pattern_spacing"),
	"support_material_speed":                   one("support_speed"),
	"support_material_style":                   one("support_style"),
	"support_material_threshold":               one("support_threshold_angle"),
	"support_material_xy_spacing":              one("support_object_xy_distance"),
	"thin_walls":                               one("detect_thin_wall"),
	"top_fill_pattern":                         one("top_surface_pattern"),
	"top_infill_extrusion_width":               one("top_surface_line_width"),
	"top_solid_infill_acceleration":            one("top_surface_acceleration"),
	"top_solid_infill_speed":                   one("top_surface_speed"),
	"top_solid_layers":                         one("top_shell_layers"),
	"top_solid_min_thickness":                  one("top_shell_thickness"),
	"travel_acceleration":                      one("travel_acceleration"),
	"travel_speed":                             one("travel_speed"),
	"travel_speed_z":                           one("travel_speed_z"),
	"wall_distribution_count":                  one("wall_distribution_count"),
	"wall_transition_angle":                    one("wall_transition_angle"),
	"wall_transition_length":                   one("wall_transition_length"),
	"wipe_tower":                               one("enable_prime_tower"),
	"wipe_tower_brim_width":                    one("prime_tower_brim_width"),
	"wipe_tower_width":                         one("prime_tower_width"),
	"xy_size_compensation":                     {"xy_hole_compensation", "xy_contour_compensation"},
}

var filamentFields = map[string][]string{
	"bed_temperature": {
		"hot_plate_temp", "cool_plate_temp", "eng_plate_temp", "textured_plate_temp",
	},
	"bridge_fan_speed":                     one("overhang_fan_speed"),
	"chamber_temperature":                  one("chamber_temperature"),
	"compatible_printers":                  one("compatible_printers"),
	"compatible_printers_condition":        one("compatible_printers_condition"),
	"compatible_prints":                    one("compatible_prints"),
	"compatible_prints_condition":          one("compatible_prints_condition"),
	"disable_fan_first_layers":             one("close_fan_the_first_x_layers"),
	"end_filament_gcode":                   one("filament_end_gcode"),
	"extrusion_multiplier":                 one("filament_flow_ratio"),
	"fan_always_on":                        one("reduce_fan_stop_start_freq"),
	"fan_below_layer_time":                 one("fan_cooling_layer_time"),
	"filament_colour":                      one("default_filament_colour"),
	"filament_cost":                        one("filament_cost"),
	"filament_density":                     one("filament_density"),
	"filament_deretract_speed":             one("filament_deretraction_speed"),
	"filament_diameter":                    one("filament_diameter"),
	"filament_max_volumetric_speed":        one("filament_max_volumetric_speed"),
	"filament_minimal_purge_on_wipe_tower": one("filament_minimal_purge_on_wipe_tower"),
	"filament_notes":                       one("filament_notes"),
	"filament_retract_before_travel":       one("filament_retraction_minimum_travel"),
	"filament_retract_before_wipe":         one("filament_retract_before_wipe"),
	"filament_retract_layer_change":        one("filament_retract_when_changing_layer"),
	"filament_retract_length":              one("filament_retraction_length"),
	"filament_retract_lift":                one("filament_z_hop"),
	"filament_retract_lift_above":          one("filament_retract_lift_above"),
	"filament_retract_lift_below":          one("filament_retract_lift_below"),
	"filament_retract_restart_extra":       one("filament_retract_restart_extra"),
	"filament_retract_speed":               one("filament_retraction_speed"),
	"filament_settings_id":                 one("filament_settings_id"),
	"filament_shrink":                      one("filament_shrink"),
	"filament_soluble":                     one("filament_soluble"),
	"filament_spool_weight":                one("filament_spool_weight"),
	"filament_type":                        one("filament_type"),
	"filament_vendor":                      one("filament_vendor"),
	"filament_wipe":                        one("filament_wipe"),
	"first_layer_bed_temperature": {
		"hot_plate_temp_initial_layer", "cool_plate_temp_initial_layer",
		"eng_plate_temp_initial_layer", "textured_plate_temp_initial_layer",
	},
	"first_layer_temperature":   one("nozzle_temperature_initial_layer"),
	"full_fan_speed_layer":      one("full_fan_speed_layer"),
	"idle_temperature":          one("idle_temperature"),
	"inherits":                  one("inherits"),
	"max_fan_speed":             one("fan_max_speed"),
	"min_fan_speed":             one("fan_min_speed"),
	"min_print_speed":           one("slow_down_min_speed"),
	"profile_name":              one("name"),
	"slowdown_below_layer_time": one("slow_down_layer_time"),
	"start_filament_gcode":      one("filament_start_gcode"),
	"temperature":               one("nozzle_temperature"),
}
