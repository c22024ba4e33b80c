package api

import (
	"net/http"
	"strconv"

	"github.com/annel0/rivergen/internal/river"
	"github.com/annel0/rivergen/internal/world"
	"github.com/gin-gonic/gin"
)

// RiverSummary - краткое описание живой реки региона
type RiverSummary struct {
	ID     int32   `json:"id"`
	StartX float64 `json:"start_x"`
	StartZ float64 `json:"start_z"`
	Nodes  int     `json:"nodes"`
	Lakes  int     `json:"lakes"`
	Radius int     `json:"radius"`
	Mouth  float64 `json:"mouth_size"`
}

// ColumnSample - выборка одной колонки вместе с производными значениями для рельефа
type ColumnSample struct {
	X           int          `json:"x"`
	Z           int          `json:"z"`
	Sample      river.Sample `json:"sample"`
	HasFlow     bool         `json:"has_flow"`
	Valley      float64      `json:"valley"`
	CarveHeight float64      `json:"carve_height"`
}

// intParams разбирает целочисленные параметры пути или запроса
func intParams(c *gin.Context, get func(string) string, names ...string) ([]int, bool) {
	out := make([]int, len(names))
	for i, name := range names {
		v, err := strconv.Atoi(get(name))
		if err != nil {
			fail(c, http.StatusBadRequest, "Некорректный параметр "+name)
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func (rs *RestServer) regionFromPath(c *gin.Context) (*river.Region, bool) {
	xz, valid := intParams(c, c.Param, "x", "z")
	if !valid {
		return nil, false
	}

	region, err := rs.regions.Get(c.Request.Context(), xz[0], xz[1])
	if err != nil {
		rs.logger.Error("Ошибка построения региона (%d, %d): %v", xz[0], xz[1], err)
		fail(c, http.StatusInternalServerError, "Не удалось построить регион: "+err.Error())
		return nil, false
	}
	return region, true
}

// handleStats возвращает статистику менеджера регионов, кеша и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	stats := map[string]interface{}{
		"regions": rs.regions.Stats(),
		"server":  rs.metrics.Snapshot(),
	}
	if rs.flow != nil {
		stats["flow_cache"] = rs.flow.GetMetrics()
	}
	if rs.repo != nil {
		stats["storage"] = rs.repo.Backend()
	}

	ok(c, "Статистика получена", stats)
}

// handleRegions возвращает статистику уже построенных регионов
func (rs *RestServer) handleRegions(c *gin.Context) {
	regions := rs.regions.Regions()
	out := make([]river.RegionStats, len(regions))
	for i, region := range regions {
		out[i] = region.Stats()
	}
	ok(c, "Список регионов получен", gin.H{
		"regions": out,
		"total":   len(out),
	})
}

// handleRegion строит (при необходимости) регион и возвращает его статистику
func (rs *RestServer) handleRegion(c *gin.Context) {
	region, valid := rs.regionFromPath(c)
	if !valid {
		return
	}
	ok(c, "Регион получен", region.Stats())
}

// handleRivers возвращает живые реки региона
func (rs *RestServer) handleRivers(c *gin.Context) {
	region, valid := rs.regionFromPath(c)
	if !valid {
		return
	}

	net := region.Network
	rivers := region.ActiveRivers()
	out := make([]RiverSummary, 0, len(rivers))
	for _, r := range rivers {
		s := RiverSummary{
			ID:     r.ID,
			StartX: r.Start.X + region.Origin.X,
			StartZ: r.Start.Y + region.Origin.Y,
			Radius: r.Radius,
		}
		for _, id := range r.Nodes {
			if net.Node(id).IsLake {
				s.Lakes++
			} else {
				s.Nodes++
			}
		}
		if len(r.Nodes) > 0 {
			s.Mouth = net.Node(r.Nodes[0]).StartSize
		}
		out = append(out, s)
	}

	ok(c, "Реки получены", gin.H{
		"rivers": out,
		"total":  len(out),
	})
}

// handleDebug возвращает точки отладочного представления региона
func (rs *RestServer) handleDebug(c *gin.Context) {
	view, err := river.ParseDebugView(c.Param("view"))
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	region, valid := rs.regionFromPath(c)
	if !valid {
		return
	}

	points := region.Debug(view)
	ok(c, "Представление получено", gin.H{
		"view":   view,
		"points": points,
		"total":  len(points),
	})
}

// handleSample возвращает выборку одной мировой колонки
func (rs *RestServer) handleSample(c *gin.Context) {
	xz, valid := intParams(c, c.Query, "x", "z")
	if !valid {
		return
	}

	s, valley, err := rs.sampler.SampleColumn(c.Request.Context(), xz[0], xz[1])
	if err != nil {
		fail(c, http.StatusInternalServerError, "Не удалось вычислить выборку: "+err.Error())
		return
	}

	ok(c, "Выборка получена", ColumnSample{
		X:           xz[0],
		Z:           xz[1],
		Sample:      s,
		HasFlow:     s.HasFlow(),
		Valley:      valley,
		CarveHeight: world.CarveHeight(rs.regions.Config(), s.BankFactor),
	})
}

// handleChunk возвращает массивы чанка: сохраненные, если они есть, иначе вычисленные заново.
// ?source=fresh всегда вычисляет массивы заново.
func (rs *RestServer) handleChunk(c *gin.Context) {
	xz, valid := intParams(c, c.Param, "x", "z")
	if !valid {
		return
	}
	ctx := c.Request.Context()

	if rs.repo != nil && c.Query("source") != "fresh" {
		data, found, err := rs.repo.Load(ctx, xz[0], xz[1])
		if err != nil {
			fail(c, http.StatusInternalServerError, "Ошибка чтения хранилища: "+err.Error())
			return
		}
		if found {
			ok(c, "Чанк загружен из хранилища", gin.H{"source": rs.repo.Backend(), "chunk": data})
			return
		}
	}

	data, err := rs.sampler.SampleChunk(ctx, xz[0], xz[1])
	if err != nil {
		fail(c, http.StatusInternalServerError, "Не удалось вычислить чанк: "+err.Error())
		return
	}
	ok(c, "Чанк вычислен", gin.H{"source": "fresh", "chunk": data})
}

// handleFlow возвращает сохраненное течение в мировой колонке
func (rs *RestServer) handleFlow(c *gin.Context) {
	if rs.flow == nil {
		fail(c, http.StatusServiceUnavailable, "Кеш течения не настроен")
		return
	}

	xz, valid := intParams(c, c.Query, "x", "z")
	if !valid {
		return
	}

	fx, fz, found, err := rs.flow.FlowAt(c.Request.Context(), xz[0], xz[1])
	if err != nil {
		fail(c, http.StatusInternalServerError, "Ошибка чтения течения: "+err.Error())
		return
	}
	ok(c, "Течение получено", gin.H{
		"x":        xz[0],
		"z":        xz[1],
		"flow_x":   fx,
		"flow_z":   fz,
		"has_flow": found,
	})
}
