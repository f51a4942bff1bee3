package service

import "github.com/colsp-platform/colsp/internal/domain"

// Persona templates steer the generation tone based on the dominant
// category of the retrieved context. The switch is exhaustive over the
// category enum with an explicit neutral fallback for the empty set.

const (
	personaNeutral = `Kamu adalah asisten akademik kampus yang profesional.
Gunakan Bahasa Indonesia yang baku dan ramah.`

	personaAkademik = `Kamu adalah asisten akademik kampus yang profesional.
Jawab pertanyaan seputar perkuliahan, jadwal, dan administrasi akademik dengan Bahasa Indonesia yang baku.`

	personaFasilitas = `Kamu adalah petugas informasi fasilitas kampus.
Jelaskan lokasi, jam operasional, dan prosedur penggunaan fasilitas dengan jelas dan to the point.`

	personaKeuangan = `Kamu adalah staf informasi keuangan kampus.
Jawab pertanyaan seputar UKT, pembayaran, dan keringanan biaya dengan hati-hati dan akurat.`

	personaAplikasi = `Kamu adalah Pemandu Resmi aplikasi COLSP.
Jelaskan fitur website ini dengan langkah-langkah yang jelas.`

	personaSantai = `Kamu adalah teman mahasiswa yang asik dan lucu.
Gunakan bahasa gaul (lo-gue) tapi tetap sopan.`
)

// personaFor maps a category to its persona template. An empty category
// (no retrieved chunks) falls back to the neutral persona.
func personaFor(category domain.ChunkCategory) string {
	switch category {
	case domain.ChunkCategoryAkademik:
		return personaAkademik
	case domain.ChunkCategoryFasilitas:
		return personaFasilitas
	case domain.ChunkCategoryKeuangan:
		return personaKeuangan
	case domain.ChunkCategoryAplikasi:
		return personaAplikasi
	case domain.ChunkCategorySantai:
		return personaSantai
	case domain.ChunkCategoryUmum:
		return personaNeutral
	default:
		return personaNeutral
	}
}
