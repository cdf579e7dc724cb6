package devserver

import "scanflow/internal/models"

// loadFixtures fills the server with a small but representative dataset:
// both marker and non-marker processes, PDA and printer devices, two batches
// with products, and a couple of resolvable codes.
func (s *Server) loadFixtures() {
	s.processes = []models.Process{
		{ID: 1, Name: "切割工序", Descript: "金属切割", Sort: 1},
		{ID: 2, Name: "焊接工序", Descript: "金属焊接", Sort: 2},
		{ID: 3, Name: "上釉工序", Descript: "表面上釉", Sort: 3},
		{ID: 4, Name: "胶装工序", Descript: "胶装成型", Sort: 4},
		{ID: 5, Name: "装配工序", Descript: "产品装配", Sort: 5},
	}
	s.devices = []models.Device{
		{ID: 1, Name: "喷码机A-001", Code: "DEV001", Type: models.DeviceTypePrinter, Status: models.DeviceStatusNormal},
		{ID: 2, Name: "PDA-002", Code: "PDA002", Type: models.DeviceTypePDA, Status: models.DeviceStatusNormal},
		{ID: 3, Name: "PDA-003", Code: "PDA003", Type: models.DeviceTypePDA, Status: models.DeviceStatusMaintenance},
	}
	s.batches = []models.Batch{
		{
			Size: "600x600",
			Products: []models.Product{
				{ID: 101, Size: "600x600", Colour: "白色", ThumbCode: "T-101", BatchCode: "B2024-101", Trademark: "/img/tm-a.png"},
				{ID: 102, Size: "600x600", Colour: "灰色", ThumbCode: "T-102", BatchCode: "B2024-102", Trademark: "/img/tm-a.png"},
			},
		},
		{
			Size: "800x800",
			Products: []models.Product{
				{ID: 201, Size: "800x800", Colour: "米色", ThumbCode: "T-201", BatchCode: "B2024-201", Trademark: "/img/tm-b.png"},
			},
		},
	}
	s.showConfig = []models.DisplayFieldConfig{
		{ID: 1, Code: "trademark", Name: "商标", IsShow: 1},
		{ID: 2, Code: "batchCode", Name: "批次", IsShow: 1},
		{ID: 3, Code: "shareProductTime", Name: "生产时间", IsShow: 1},
		{ID: 4, Code: "thumbCode", Name: "生产图号", IsShow: 0},
		{ID: 5, Code: "size", Name: "产品型号", IsShow: 1},
		{ID: 6, Code: "qrcodeUrl", Name: "二维码", IsShow: 1}, // no client renderer; skipped
	}
	s.qrcodes = map[int64]models.QrcodeInfo{
		7: {ID: 7, Code: "7WTN0", BatchCode: "B2024-101", Num: 1, Status: 1, URL: "/product-detail"},
		8: {ID: 8, Code: "8KQJ2", BatchCode: "B2024-201", Num: 1, Status: 1, URL: "example.com/landing"},
	}
	s.details = map[int64]models.ProduceDetail{
		7: {
			QrcodeID:         7,
			BatchCode:        "B2024-101",
			Size:             "600x600",
			ThumbCode:        "T-101",
			Trademark:        "/img/tm-a.png",
			ProductThumb:     "/img/thumb-101.png",
			ShareProductTime: "2024-06-18 09:30:00",
			ProduceUserList: []models.ProduceUser{
				{ID: 1, OperateID: 11, OperateName: "张伟", ProductionProcessesID: 1, ProductionProcessesName: "切割工序", CreateTime: "2024-06-18 08:02:11"},
				{ID: 2, OperateID: 12, OperateName: "李娜", ProductionProcessesID: 3, ProductionProcessesName: "上釉工序", CreateTime: "2024-06-18 09:15:40"},
			},
		},
	}
}
