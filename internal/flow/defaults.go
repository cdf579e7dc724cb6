package flow

import "scanflow/internal/models"

// Built-in reference data used when a list fetch fails. Each list falls back
// independently so the form stays usable when the reference-data service is
// down.

func defaultProcesses() []models.Process {
	return []models.Process{
		{ID: 1, Name: "切割工序", Descript: "金属切割", Sort: 1},
		{ID: 2, Name: "焊接工序", Descript: "金属焊接", Sort: 2},
		{ID: 3, Name: "打磨工序", Descript: "表面打磨", Sort: 3},
		{ID: 4, Name: "喷涂工序", Descript: "表面喷涂", Sort: 4},
		{ID: 5, Name: "装配工序", Descript: "产品装配", Sort: 5},
	}
}

func defaultDevices() []models.Device {
	return []models.Device{
		{ID: 1, Name: "设备A-001", Code: "DEV001", Status: models.DeviceStatusNormal, Type: models.DeviceTypePrinter},
		{ID: 2, Name: "设备B-002", Code: "DEV002", Status: models.DeviceStatusNormal, Type: models.DeviceTypePrinter},
		{ID: 3, Name: "设备C-003", Code: "DEV003", Status: models.DeviceStatusMaintenance, Type: models.DeviceTypePrinter},
		{ID: 4, Name: "设备D-004", Code: "DEV004", Status: models.DeviceStatusNormal, Type: models.DeviceTypePrinter},
		{ID: 5, Name: "设备E-005", Code: "DEV005", Status: models.DeviceStatusNormal, Type: models.DeviceTypePrinter},
	}
}

func defaultBatches() []models.Batch {
	return []models.Batch{
		{Size: "001"},
		{Size: "sad"},
		{Size: "123132"},
	}
}
