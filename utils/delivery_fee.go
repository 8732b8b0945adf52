package utils

// 各郡配送费（KES）。下单时按county查表，总额由服务端计算。
var deliveryFees = map[string]float64{
	"Nairobi":          200,
	"Kiambu":           300,
	"Machakos":         300,
	"Kajiado":          300,
	"Murang'a":         350,
	"Kirinyaga":        400,
	"Nyandarua":        400,
	"Nyeri":            400,
	"Nakuru":           400,
	"Narok":            400,
	"Embu":             400,
	"Makueni":          400,
	"Nandi":            450,
	"Kericho":          450,
	"Bomet":            450,
	"Laikipia":         450,
	"Meru":             450,
	"Tharaka Nithi":    450,
	"Kitui":            450,
	"Uasin Gishu":      450,
	"Kisumu":           500,
	"Kisii":            500,
	"Nyamira":          500,
	"Siaya":            500,
	"Vihiga":           500,
	"Kakamega":         500,
	"Bungoma":          500,
	"Trans Nzoia":      500,
	"Baringo":          500,
	"Elgeyo Marakwet":  500,
	"Mombasa":          500,
	"Busia":            550,
	"Homa Bay":         550,
	"Migori":           550,
	"Kilifi":           550,
	"Kwale":            550,
	"Taita Taveta":     550,
	"Isiolo":           550,
	"West Pokot":       600,
	"Samburu":          650,
	"Lamu":             650,
	"Tana River":       650,
	"Garissa":          700,
	"Marsabit":         700,
	"Wajir":            750,
	"Turkana":          750,
	"Mandera":          800,
}

// FeeFor 查找某郡的配送费，未知郡返回false
func FeeFor(county string) (float64, bool) {
	fee, ok := deliveryFees[county]
	return fee, ok
}

// DeliveryFees 返回完整费用表的副本
func DeliveryFees() map[string]float64 {
	out := make(map[string]float64, len(deliveryFees))
	for county, fee := range deliveryFees {
		out[county] = fee
	}
	return out
}
